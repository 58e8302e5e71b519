package pvpstacks

import (
	"context"
	"fmt"

	"github.com/park285/deathstacks/internal/render"
	"github.com/park285/deathstacks/internal/stacks"
	"github.com/park285/deathstacks/pkg/stacksdto"
)

// ToDTO renders the current board and returns the presentation state.
func (m *Manager) ToDTO(ctx context.Context, g *Game) (*stacksdto.SessionState, error) {
	if m == nil || g == nil {
		return nil, nil
	}
	board := stacks.NewBoard()
	if err := board.LoadState(g.Board); err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	opts := render.RenderOptions{
		Caption:   fmt.Sprintf("%s vs %s", g.RedName, g.BlueName),
		Highlight: lastHighlight(g),
	}
	png, err := m.renderer.RenderPNG(ctx, board, opts)
	if err != nil {
		return nil, err
	}
	return &stacksdto.SessionState{
		GameID:     g.ID,
		Board:      g.Board,
		Moves:      append([]stacksdto.MoveEntry(nil), g.Moves...),
		Turn:       string(g.Turn),
		NextPlayer: g.NextPlayer(),
		Status:     string(g.Status),
		StatusText: g.StatusText(),
		Info:       g.Info(),
		Winner:     g.Winner,
		Outcome:    g.Outcome,
		BoardImage: png,
		MoveCount:  len(g.Moves),
	}, nil
}

func lastHighlight(g *Game) *render.MoveHighlight {
	if len(g.Moves) == 0 {
		return nil
	}
	mv, err := stacks.ParseMove(g.Moves[len(g.Moves)-1].Move)
	if err != nil {
		return nil
	}
	return &render.MoveHighlight{From: mv.Start, To: mv.End}
}
