package stacks

import (
	"fmt"
	"strings"
)

// Square is one board cell holding a stack of pieces, bottom first.
type Square struct {
	coord  Coord
	pieces []Color
}

func newSquare(c Coord) *Square {
	return &Square{coord: c}
}

func (s *Square) Coord() Coord { return s.coord }

// Len is the number of pieces in the stack.
func (s *Square) Len() int { return len(s.pieces) }

// Top returns the color of the top piece, NoColor when empty.
func (s *Square) Top() Color {
	if len(s.pieces) == 0 {
		return NoColor
	}
	return s.pieces[len(s.pieces)-1]
}

// Pieces returns a copy of the stack, bottom first.
func (s *Square) Pieces() []Color {
	return append([]Color(nil), s.pieces...)
}

// Equal compares squares by coordinate only.
func (s *Square) Equal(other *Square) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.coord == other.coord
}

// TransferTopTo moves the top n pieces onto other, keeping their order.
// The caller guarantees 0 <= n <= s.Len().
func (s *Square) TransferTopTo(other *Square, n int) {
	cut := len(s.pieces) - n
	moved := s.pieces[cut:]
	other.pieces = append(other.pieces, moved...)
	// fresh backing array so later appends to s never alias other's pieces
	s.pieces = append([]Color(nil), s.pieces[:cut]...)
}

// Serialize lists the pieces top first.
func (s *Square) Serialize() string {
	var b strings.Builder
	b.Grow(len(s.pieces))
	for i := len(s.pieces) - 1; i >= 0; i-- {
		b.WriteByte(byte(s.pieces[i]))
	}
	return b.String()
}

// Deserialize replaces the stack with the top-first listing in text.
func (s *Square) Deserialize(text string) error {
	pieces := make([]Color, 0, len(text))
	for i := len(text) - 1; i >= 0; i-- {
		c, ok := colorFromSymbol(text[i])
		if !ok {
			return fmt.Errorf("square %s: unknown piece %q", s.coord, text[i])
		}
		pieces = append(pieces, c)
	}
	s.pieces = pieces
	return nil
}

func (s *Square) clear() { s.pieces = nil }
