package pvpstacks

import (
	"bytes"
	"context"
	"image/png"
	"testing"
)

func TestToDTO(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	newRedVsBlue(t, m)
	g, _ := mustPlay(t, m, "u1", "a6-1-a5")

	dto, err := m.ToDTO(ctx, g)
	if err != nil {
		t.Fatalf("ToDTO: %v", err)
	}
	if dto.GameID != g.ID || dto.Board != g.Board || dto.Turn != "blue" || dto.NextPlayer != "u2" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.Status != "ACTIVE" || dto.StatusText != "Started" || dto.MoveCount != 1 {
		t.Fatalf("status fields: %+v", dto)
	}
	img, err := png.Decode(bytes.NewReader(dto.BoardImage))
	if err != nil {
		t.Fatalf("board image is not a png: %v", err)
	}
	if img.Bounds().Dx() == 0 {
		t.Fatalf("empty image")
	}

	if hl := lastHighlight(g); hl == nil || hl.From.String() != "a6" || hl.To.String() != "a5" {
		t.Fatalf("highlight = %+v", hl)
	}
	if hl := lastHighlight(&Game{}); hl != nil {
		t.Fatalf("expected no highlight")
	}
}

func TestToDTO_CanceledContext(t *testing.T) {
	m, _ := newTestManager(t)
	g := newRedVsBlue(t, m)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.ToDTO(ctx, g); err == nil {
		t.Fatalf("expected context error")
	}
}
