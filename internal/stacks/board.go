package stacks

import (
	"fmt"
	"strings"
)

// StartNotation is the opening position: red on row 6, blue on row 1, two pieces per square.
const StartNotation = "rr,rr,rr,rr,rr,rr/,,,,,/,,,,,/,,,,,/,,,,,/bb,bb,bb,bb,bb,bb"

// MalformedStateError reports board notation that does not describe a 6x6 board.
type MalformedStateError struct {
	Notation string
	Reason   string
}

func (e *MalformedStateError) Error() string {
	return fmt.Sprintf("malformed board notation %q: %s", e.Notation, e.Reason)
}

// Board owns the 36 squares and the append-only log of serialized states.
type Board struct {
	// grid[col][row], index 0 unused on both axes
	grid    [BoardSize + 1][BoardSize + 1]*Square
	history []string
}

// NewBoard returns an empty board with no recorded states.
func NewBoard() *Board {
	b := &Board{}
	for col := 1; col <= BoardSize; col++ {
		for row := 1; row <= BoardSize; row++ {
			b.grid[col][row] = newSquare(Coord{Col: col, Row: row})
		}
	}
	return b
}

// RestoreBoard rebuilds a board from a recorded state history. The last entry
// becomes the current position and the history is kept as given.
func RestoreBoard(history []string) (*Board, error) {
	if len(history) == 0 {
		return nil, &MalformedStateError{Reason: "empty state history"}
	}
	b := NewBoard()
	if err := b.LoadState(history[len(history)-1]); err != nil {
		return nil, err
	}
	b.history = append(b.history[:0], history...)
	return b, nil
}

// LoadState replaces every stack with the contents of notation and records it.
// On error the board is left untouched.
func (b *Board) LoadState(notation string) error {
	cells, err := parseNotation(notation)
	if err != nil {
		return err
	}
	for col := 1; col <= BoardSize; col++ {
		for row := 1; row <= BoardSize; row++ {
			sq := b.grid[col][row]
			sq.clear()
			if err := sq.Deserialize(cells[col][row]); err != nil {
				// parseNotation already checked every symbol
				return &MalformedStateError{Notation: notation, Reason: err.Error()}
			}
		}
	}
	b.history = append(b.history, notation)
	return nil
}

func parseNotation(notation string) ([BoardSize + 1][BoardSize + 1]string, error) {
	var cells [BoardSize + 1][BoardSize + 1]string
	rows := strings.Split(notation, "/")
	if len(rows) != BoardSize {
		return cells, &MalformedStateError{Notation: notation, Reason: fmt.Sprintf("want %d rows, got %d", BoardSize, len(rows))}
	}
	for i, group := range rows {
		row := BoardSize - i
		parts := strings.Split(group, ",")
		if len(parts) != BoardSize {
			return cells, &MalformedStateError{Notation: notation, Reason: fmt.Sprintf("row %d: want %d columns, got %d", row, BoardSize, len(parts))}
		}
		for j, cell := range parts {
			for k := 0; k < len(cell); k++ {
				if _, ok := colorFromSymbol(cell[k]); !ok {
					return cells, &MalformedStateError{Notation: notation, Reason: fmt.Sprintf("row %d: unknown piece %q", row, cell[k])}
				}
			}
			cells[j+1][row] = cell
		}
	}
	return cells, nil
}

// DumpState serializes the current position.
func (b *Board) DumpState() string {
	var sb strings.Builder
	for row := BoardSize; row >= 1; row-- {
		for col := 1; col <= BoardSize; col++ {
			sb.WriteString(b.grid[col][row].Serialize())
			if col < BoardSize {
				sb.WriteByte(',')
			}
		}
		if row > 1 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// SquareAt resolves coordinate text such as "c4".
func (b *Board) SquareAt(text string) (*Square, bool) {
	c, ok := ParseCoord(text)
	if !ok {
		return nil, false
	}
	return b.grid[c.Col][c.Row], true
}

// Square returns the square at c, or nil when c is off the board.
func (b *Board) Square(c Coord) *Square {
	if !c.Valid() {
		return nil
	}
	return b.grid[c.Col][c.Row]
}

// Squares lists all squares from a6 to f1, row by row.
func (b *Board) Squares() []*Square {
	out := make([]*Square, 0, BoardSize*BoardSize)
	for row := BoardSize; row >= 1; row-- {
		for col := 1; col <= BoardSize; col++ {
			out = append(out, b.grid[col][row])
		}
	}
	return out
}

// Execute moves n pieces from start to end and records the new state.
// Legality is the rules engine's concern.
func (b *Board) Execute(start, end *Square, n int) {
	start.TransferTopTo(end, n)
	b.history = append(b.history, b.DumpState())
}

// History returns a copy of all recorded states, oldest first.
func (b *Board) History() []string {
	return append([]string(nil), b.history...)
}

// Occurrences counts how often state appears in the history.
func (b *Board) Occurrences(state string) int {
	n := 0
	for _, s := range b.history {
		if s == state {
			n++
		}
	}
	return n
}

// PieceCount is the total number of pieces on the board.
func (b *Board) PieceCount() int {
	n := 0
	for _, sq := range b.Squares() {
		n += sq.Len()
	}
	return n
}
