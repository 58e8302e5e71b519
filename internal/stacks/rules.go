package stacks

import "fmt"

// RulesEngine validates moves for one board on behalf of the current mover.
// The mover color is its only mutable state.
type RulesEngine struct {
	board *Board
	mover Color
}

// NewRulesEngine binds an engine to board with red to move.
func NewRulesEngine(board *Board) *RulesEngine {
	return &RulesEngine{board: board, mover: Red}
}

func (r *RulesEngine) Mover() Color { return r.mover }

func (r *RulesEngine) SetMover(c Color) { r.mover = c }

// FlipMover hands the move to the other color.
func (r *RulesEngine) FlipMover() { r.mover = r.mover.Opponent() }

// CheckLegal reports whether moveText is a legal move for the mover.
func (r *RulesEngine) CheckLegal(moveText string) bool {
	return r.Explain(moveText) == nil
}

// Explain runs the checks in order (format, forced stack, ownership, reach)
// and returns the first failure, or nil when the move is legal.
func (r *RulesEngine) Explain(moveText string) error {
	m, err := r.CheckFormat(moveText)
	if err != nil {
		return err
	}
	if err := r.CheckForced(m); err != nil {
		return err
	}
	if err := r.CheckOwnership(m); err != nil {
		return err
	}
	return r.CheckReachable(m)
}

// CheckFormat parses moveText. Both endpoints resolve to squares on success.
func (r *RulesEngine) CheckFormat(moveText string) (Move, error) {
	return ParseMove(moveText)
}

// ForcedSquares lists the mover's stacks taller than MaxStackHeight.
func (r *RulesEngine) ForcedSquares() []*Square {
	var out []*Square
	for _, sq := range r.board.Squares() {
		if sq.Len() > MaxStackHeight && sq.Top() == r.mover {
			out = append(out, sq)
		}
	}
	return out
}

// CheckForced enforces the too-tall rule: while the mover owns a stack above
// MaxStackHeight, the move must start there and bring it down to the limit.
func (r *RulesEngine) CheckForced(m Move) error {
	forced := r.ForcedSquares()
	if len(forced) == 0 {
		return nil
	}
	for _, sq := range forced {
		if sq.Coord() != m.Start {
			continue
		}
		if sq.Len()-m.Count > MaxStackHeight {
			return fmt.Errorf("%w: %s holds %d, move at least %d", ErrForcedMove, sq.Coord(), sq.Len(), sq.Len()-MaxStackHeight)
		}
		return nil
	}
	return fmt.Errorf("%w: move must start from %s", ErrForcedMove, forced[0].Coord())
}

// CheckOwnership requires the start stack to be topped by the mover.
func (r *RulesEngine) CheckOwnership(m Move) error {
	start := r.board.Square(m.Start)
	if start == nil || start.Top() != r.mover {
		return fmt.Errorf("%w: %s", ErrNotOwner, m.Start)
	}
	return nil
}

// CheckReachable validates the distance: the count may not exceed the stack
// and both axes must land on the destination with the same count.
func (r *RulesEngine) CheckReachable(m Move) error {
	if m.Start == m.End {
		return fmt.Errorf("%w: start equals end", ErrUnreachable)
	}
	start := r.board.Square(m.Start)
	if start == nil || m.Count > start.Len() {
		return fmt.Errorf("%w: %s holds fewer than %d pieces", ErrUnreachable, m.Start, m.Count)
	}
	if !reachable(m.Start, m.End, m.Count) {
		return fmt.Errorf("%w: %s is not %d steps from %s", ErrUnreachable, m.End, m.Count, m.Start)
	}
	return nil
}

// IsGameOver reports whether every occupied square is topped by the mover.
func (r *RulesEngine) IsGameOver() bool {
	for _, sq := range r.board.Squares() {
		if sq.Len() > 0 && sq.Top() != r.mover {
			return false
		}
	}
	return true
}

// IsThreefoldRepetition reports whether the current position has been seen
// at least three times, counting the current entry.
func (r *RulesEngine) IsThreefoldRepetition() bool {
	return r.board.Occurrences(r.board.DumpState()) >= 3
}
