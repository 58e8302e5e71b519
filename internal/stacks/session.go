package stacks

import "fmt"

// PlayerID is an opaque player identity compared by equality only.
type PlayerID string

// MoveRecord is one accepted move with the state it produced.
type MoveRecord struct {
	Text   string
	State  string
	Player PlayerID
}

// Session sequences validation, execution and terminal checks for one game.
// It is not safe for concurrent use.
type Session struct {
	board *Board
	rules *RulesEngine
	red   PlayerID
	blue  PlayerID

	finished bool
	draw     bool
	winner   PlayerID
	moves    []MoveRecord
}

// NewSession seats red and blue on the starting position with red to move.
func NewSession(red, blue PlayerID) *Session {
	b := NewBoard()
	if err := b.LoadState(StartNotation); err != nil {
		panic(fmt.Sprintf("stacks: start position rejected: %v", err))
	}
	return &Session{board: b, rules: NewRulesEngine(b), red: red, blue: blue}
}

// ResumeSession rebuilds a running session from persisted history with next
// to move. Finished games are not resumed.
func ResumeSession(red, blue PlayerID, history []string, moves []MoveRecord, next Color) (*Session, error) {
	if next != Red && next != Blue {
		return nil, fmt.Errorf("stacks: invalid next color %q", next)
	}
	b, err := RestoreBoard(history)
	if err != nil {
		return nil, err
	}
	s := &Session{board: b, rules: NewRulesEngine(b), red: red, blue: blue}
	s.moves = append(s.moves, moves...)
	s.rules.SetMover(next)
	return s, nil
}

// AttemptMove applies moveText for player. It returns false without touching
// the board when the game is over, it is not player's turn, or the move is illegal.
func (s *Session) AttemptMove(moveText string, player PlayerID) bool {
	return s.Play(moveText, player) == nil
}

// Play is AttemptMove with the rejection reason.
func (s *Session) Play(moveText string, player PlayerID) error {
	if s.finished {
		return ErrGameFinished
	}
	color, ok := s.ColorOf(player)
	if !ok {
		return ErrUnknownPlayer
	}
	if color != s.rules.Mover() {
		return ErrNotYourTurn
	}
	if err := s.rules.Explain(moveText); err != nil {
		return err
	}
	m, _ := ParseMove(moveText)
	s.board.Execute(s.board.Square(m.Start), s.board.Square(m.End), m.Count)
	state := s.board.DumpState()
	s.moves = append(s.moves, MoveRecord{Text: moveText, State: state, Player: player})

	switch {
	case s.rules.IsGameOver():
		s.finished = true
		s.winner = player
	case s.rules.IsThreefoldRepetition():
		s.finished = true
		s.draw = true
	}
	s.rules.FlipMover()
	return nil
}

// ColorOf maps a seated player to their color.
func (s *Session) ColorOf(player PlayerID) (Color, bool) {
	switch player {
	case s.red:
		return Red, true
	case s.blue:
		return Blue, true
	default:
		return NoColor, false
	}
}

// PlayerOf maps a color to the seated player.
func (s *Session) PlayerOf(c Color) PlayerID {
	switch c {
	case Red:
		return s.red
	case Blue:
		return s.blue
	default:
		return ""
	}
}

// SetNext makes player the mover, as announced by the outer game shell.
func (s *Session) SetNext(player PlayerID) error {
	c, ok := s.ColorOf(player)
	if !ok {
		return ErrUnknownPlayer
	}
	s.rules.SetMover(c)
	return nil
}

// Next is the color to move.
func (s *Session) Next() Color { return s.rules.Mover() }

// NextPlayer is the player to move.
func (s *Session) NextPlayer() PlayerID { return s.PlayerOf(s.rules.Mover()) }

// LoadState replaces the position. The notation is appended to the history.
func (s *Session) LoadState(notation string) error {
	return s.board.LoadState(notation)
}

func (s *Session) DumpState() string { return s.board.DumpState() }

func (s *Session) IsFinished() bool { return s.finished }

func (s *Session) IsDraw() bool { return s.draw }

// Winner is the winning player, empty while running or after a draw.
func (s *Session) Winner() (PlayerID, bool) {
	if !s.finished || s.draw {
		return "", false
	}
	return s.winner, true
}

// Finish ends the game from outside the rules, e.g. on resignation or an
// agreed draw. An empty winner means a draw.
func (s *Session) Finish(winner PlayerID) {
	s.finished = true
	s.winner = winner
	s.draw = winner == ""
}

// Moves returns a copy of the move log.
func (s *Session) Moves() []MoveRecord {
	return append([]MoveRecord(nil), s.moves...)
}

// History returns the board's state history.
func (s *Session) History() []string { return s.board.History() }

// Board exposes the underlying board for read-only use such as rendering.
func (s *Session) Board() *Board { return s.board }

func (s *Session) Rules() *RulesEngine { return s.rules }
