package stacks

// Pieces travel along each axis as a ball between two walls: overshooting an
// edge reflects the remaining steps back. Step counts are reduced modulo 10,
// so a count of 10 moves nowhere on that axis.

const bounceModulus = 10

// bounceDown walks steps toward 1 from v, folding back up past the low edge.
func bounceDown(v, steps int) int {
	steps %= bounceModulus
	if v > steps {
		return v - steps
	}
	return bounceUp(1, steps-(v-1))
}

// bounceUp walks steps toward BoardSize from v, folding back down past the high edge.
func bounceUp(v, steps int) int {
	steps %= bounceModulus
	if BoardSize-v > steps {
		return v + steps
	}
	return bounceDown(BoardSize, steps-(BoardSize-v))
}

// axisReachable reports whether to is reachable from from in steps on one axis.
func axisReachable(from, to, steps int) bool {
	return to == from || to == bounceDown(from, steps) || to == bounceUp(from, steps)
}

// reachable requires both axes to resolve with the same step count.
func reachable(from, to Coord, steps int) bool {
	return axisReachable(from.Col, to.Col, steps) && axisReachable(from.Row, to.Row, steps)
}
