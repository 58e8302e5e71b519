// Package stacks implements the rules engine of the six-by-six stacking game:
// board state, move legality, move execution and terminal-state detection.
package stacks

import "fmt"

// Color identifies the owner of a single piece.
type Color byte

const (
	NoColor Color = 0
	Red     Color = 'r'
	Blue    Color = 'b'
)

// Opponent returns the other player's color. NoColor maps to itself.
func (c Color) Opponent() Color {
	switch c {
	case Red:
		return Blue
	case Blue:
		return Red
	default:
		return NoColor
	}
}

// Symbol is the single-character notation of the color.
func (c Color) Symbol() string {
	if c == NoColor {
		return ""
	}
	return string(rune(c))
}

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Blue:
		return "blue"
	default:
		return "none"
	}
}

// ParseColor accepts "r"/"red" and "b"/"blue".
func ParseColor(s string) (Color, bool) {
	switch s {
	case "r", "red":
		return Red, true
	case "b", "blue":
		return Blue, true
	default:
		return NoColor, false
	}
}

func colorFromSymbol(ch byte) (Color, bool) {
	switch Color(ch) {
	case Red, Blue:
		return Color(ch), true
	default:
		return NoColor, false
	}
}

const (
	BoardSize = 6
	// MaxStackHeight is the tallest stack a player may leave standing on their turn.
	MaxStackHeight = 4
)

// Coord is a 1-based grid position. Col 1..6 maps to a..f.
type Coord struct {
	Col int
	Row int
}

// ParseCoord parses "a1".."f6". Anything else is rejected.
func ParseCoord(s string) (Coord, bool) {
	if len(s) != 2 {
		return Coord{}, false
	}
	col, row := s[0], s[1]
	if col < 'a' || col > 'f' || row < '1' || row > '6' {
		return Coord{}, false
	}
	return Coord{Col: int(col-'a') + 1, Row: int(row-'0')}, true
}

// Valid reports whether the coordinate lies on the board.
func (c Coord) Valid() bool {
	return c.Col >= 1 && c.Col <= BoardSize && c.Row >= 1 && c.Row <= BoardSize
}

func (c Coord) String() string {
	if !c.Valid() {
		return fmt.Sprintf("?%d%d", c.Col, c.Row)
	}
	return fmt.Sprintf("%c%d", 'a'+c.Col-1, c.Row)
}
