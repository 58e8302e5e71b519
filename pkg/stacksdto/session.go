package stacksdto

// SessionState is the presentation view of a game.
type SessionState struct {
	GameID     string
	Board      string
	Moves      []MoveEntry
	Turn       string
	NextPlayer string
	Status     string
	StatusText string
	Info       string
	Winner     string
	Outcome    string
	BoardImage []byte
	MoveCount  int
}
