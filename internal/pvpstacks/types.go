package pvpstacks

import (
	"errors"
	"time"

	"github.com/park285/deathstacks/internal/stacks"
	"github.com/park285/deathstacks/pkg/stacksdto"
)

// Color identifies a side.
type Color string

const (
	Red  Color = "red"
	Blue Color = "blue"
)

func colorFrom(c stacks.Color) Color {
	if c == stacks.Blue {
		return Blue
	}
	return Red
}

func (c Color) core() stacks.Color {
	if c == Blue {
		return stacks.Blue
	}
	return stacks.Red
}

func (c Color) opponent() Color {
	if c == Red {
		return Blue
	}
	return Red
}

// Status represents a PvP game lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusResigned Status = "RESIGNED"
	StatusDraw     Status = "DRAW"
)

// Result methods stored with finished games.
const (
	MethodDomination  = "domination"
	MethodRepetition  = "repetition"
	MethodResignation = "resignation"
	MethodAgreement   = "agreement"
)

var (
	ErrGameNotFound   = errors.New("stacks game not found")
	ErrNotParticipant = errors.New("user not in game")
	ErrGameNotActive  = errors.New("game no longer active")
	ErrInvalidArgs    = errors.New("invalid arguments")
)

// Game is the persisted state of a PvP match.
type Game struct {
	ID         string                `json:"id"`
	Board      string                `json:"board"`
	States     []string              `json:"states"`
	Moves      []stacksdto.MoveEntry `json:"moves"`
	Turn       Color                 `json:"turn"`
	Status     Status                `json:"status"`
	RedID      string                `json:"red_id"`
	RedName    string                `json:"red_name"`
	BlueID     string                `json:"blue_id"`
	BlueName   string                `json:"blue_name"`
	DrawOffers []string              `json:"draw_offers,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	Winner     string                `json:"winner,omitempty"`
	Outcome    string                `json:"outcome,omitempty"` // red | blue | draw
	Method     string                `json:"method,omitempty"`
}

func (g *Game) colorOf(userID string) (Color, bool) {
	switch userID {
	case g.RedID:
		return Red, true
	case g.BlueID:
		return Blue, true
	default:
		return "", false
	}
}

func (g *Game) idOf(c Color) string {
	if c == Blue {
		return g.BlueID
	}
	return g.RedID
}

func (g *Game) nameOf(c Color) string {
	if c == Blue {
		return g.BlueName
	}
	return g.RedName
}

func (g *Game) hasOffered(userID string) bool {
	for _, id := range g.DrawOffers {
		if id == userID {
			return true
		}
	}
	return false
}

// Active reports whether moves are still accepted.
func (g *Game) Active() bool { return g.Status == StatusActive }

// StatusText is the coarse lifecycle label: Started, Surrendered, Draw or Finished.
func (g *Game) StatusText() string {
	switch g.Status {
	case StatusResigned:
		return "Surrendered"
	case StatusDraw:
		return "Draw"
	case StatusFinished:
		return "Finished"
	default:
		return "Started"
	}
}

// Info describes the result or a pending draw offer, e.g. "red won",
// "blue gave up", "red called draw" or "draw game". Empty while nothing happened.
func (g *Game) Info() string {
	switch g.Status {
	case StatusResigned:
		if c, ok := g.colorOf(g.Winner); ok {
			return string(c.opponent()) + " gave up"
		}
		return ""
	case StatusDraw:
		return "draw game"
	case StatusFinished:
		if c, ok := g.colorOf(g.Winner); ok {
			return string(c) + " won"
		}
		return ""
	}
	if len(g.DrawOffers) > 0 {
		if c, ok := g.colorOf(g.DrawOffers[0]); ok {
			return string(c) + " called draw"
		}
	}
	return ""
}

// NextPlayer is the user id of the side to move.
func (g *Game) NextPlayer() string { return g.idOf(g.Turn) }

func (g *Game) session() (*stacks.Session, error) {
	records := make([]stacks.MoveRecord, 0, len(g.Moves))
	for _, mv := range g.Moves {
		records = append(records, stacks.MoveRecord{Text: mv.Move, State: mv.State, Player: stacks.PlayerID(mv.Player)})
	}
	return stacks.ResumeSession(stacks.PlayerID(g.RedID), stacks.PlayerID(g.BlueID), g.States, records, g.Turn.core())
}
