package stacks

import (
	"fmt"
	"strconv"
	"strings"
)

// Move is a parsed "<start>-<count>-<end>" instruction. It is never stored;
// only its text and the resulting state are logged.
type Move struct {
	Start Coord
	Count int
	End   Coord
}

func (m Move) String() string {
	return fmt.Sprintf("%s-%d-%s", m.Start, m.Count, m.End)
}

// ParseMove validates the textual form of a move. Geometry and ownership are
// checked separately by the rules engine.
func ParseMove(text string) (Move, error) {
	parts := strings.Split(text, "-")
	if len(parts) != 3 {
		return Move{}, fmt.Errorf("%w: want <start>-<count>-<end>, got %q", ErrMoveFormat, text)
	}
	for _, p := range parts {
		if p == "" {
			return Move{}, fmt.Errorf("%w: empty segment in %q", ErrMoveFormat, text)
		}
	}
	start, ok := ParseCoord(parts[0])
	if !ok {
		return Move{}, fmt.Errorf("%w: bad start square %q", ErrMoveFormat, parts[0])
	}
	end, ok := ParseCoord(parts[2])
	if !ok {
		return Move{}, fmt.Errorf("%w: bad end square %q", ErrMoveFormat, parts[2])
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n <= 0 {
		return Move{}, fmt.Errorf("%w: count must be a positive integer, got %q", ErrMoveFormat, parts[1])
	}
	return Move{Start: start, Count: n, End: end}, nil
}
