package stacksdto

import "time"

// StacksGame is one archived game as stored by the result repository.
type StacksGame struct {
	GameID       string
	RedID        string
	RedName      string
	BlueID       string
	BlueName     string
	Result       string // red | blue | draw
	ResultMethod string
	Moves        []MoveEntry
	States       []string
	FinalBoard   string
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}
