package pvpstacks

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// interferingHook rewrites the game key from outside the transaction on the
// first GET issued after WATCH, so the pending EXEC sees a modified key.
type interferingHook struct {
	mr      *miniredis.Miniredis
	key     string
	edit    func(*Game) // nil stores the same value again
	watched bool
	fired   bool
}

func (h *interferingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *interferingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *interferingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		switch cmd.Name() {
		case "watch":
			h.watched = true
		case "get":
			if h.watched && !h.fired {
				h.fired = true
				h.rewrite()
			}
		}
		return next(ctx, cmd)
	}
}

func (h *interferingHook) rewrite() {
	raw, err := h.mr.Get(h.key)
	if err != nil {
		return
	}
	if h.edit != nil {
		var g Game
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return
		}
		h.edit(&g)
		b, err := json.Marshal(&g)
		if err != nil {
			return
		}
		raw = string(b)
	}
	ttl := h.mr.TTL(h.key)
	_ = h.mr.Set(h.key, raw)
	h.mr.SetTTL(h.key, ttl)
}

type gameCommand func(ctx context.Context, m *Manager, g *Game) (*Game, string, error)

var gameCommands = []struct {
	name string
	run  gameCommand
}{
	{"PlayMove", func(ctx context.Context, m *Manager, _ *Game) (*Game, string, error) {
		return m.PlayMove(ctx, "u1", "a6-1-a5")
	}},
	{"Resign", func(ctx context.Context, m *Manager, _ *Game) (*Game, string, error) {
		return m.Resign(ctx, "u2")
	}},
	{"OfferDraw", func(ctx context.Context, m *Manager, _ *Game) (*Game, string, error) {
		return m.OfferDraw(ctx, "u1")
	}},
	{"LoadState", func(ctx context.Context, m *Manager, g *Game) (*Game, string, error) {
		return m.LoadState(ctx, g.ID, fiveEach, Blue)
	}},
}

func TestConcurrentWrite_ReturnsRetryMessage(t *testing.T) {
	for _, tc := range gameCommands {
		t.Run(tc.name, func(t *testing.T) {
			m, mr := newTestManager(t)
			ctx := context.Background()
			g := newRedVsBlue(t, m)

			h := &interferingHook{mr: mr, key: gameKey(g.ID)}
			m.rdb.AddHook(h)

			got, msg, err := tc.run(ctx, m, g)
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if !h.fired {
				t.Fatalf("no GET ran under WATCH")
			}
			if !strings.Contains(msg, "try again") {
				t.Fatalf("text = %q", msg)
			}
			if got == nil || got.Status != StatusActive {
				t.Fatalf("returned game = %+v", got)
			}

			after, err := m.LoadGame(ctx, g.ID)
			if err != nil || after == nil {
				t.Fatalf("LoadGame: %v", err)
			}
			if after.Board != g.Board || after.Turn != g.Turn || after.Status != StatusActive ||
				len(after.Moves) != 0 || len(after.States) != 1 || len(after.DrawOffers) != 0 || after.Winner != "" {
				t.Fatalf("record changed by a conflicting command: %+v", after)
			}
		})
	}
}

func TestEndedUnderWatch_ReportsNotActive(t *testing.T) {
	resigned := func(g *Game) {
		g.Status = StatusResigned
		g.Winner = g.RedID
		g.Outcome = string(Red)
		g.Method = MethodResignation
	}
	for _, tc := range gameCommands {
		t.Run(tc.name, func(t *testing.T) {
			m, mr := newTestManager(t)
			ctx := context.Background()
			g := newRedVsBlue(t, m)
			m.rdb.AddHook(&interferingHook{mr: mr, key: gameKey(g.ID), edit: resigned})

			_, msg, err := tc.run(ctx, m, g)
			if tc.name == "PlayMove" {
				if err != nil || msg != "This game is already over." {
					t.Fatalf("PlayMove = %q, %v", msg, err)
				}
			} else if !errors.Is(err, ErrGameNotActive) {
				t.Fatalf("%s = %q, %v; want ErrGameNotActive", tc.name, msg, err)
			}

			after, err := m.LoadGame(ctx, g.ID)
			if err != nil || after == nil {
				t.Fatalf("LoadGame: %v", err)
			}
			if after.Status != StatusResigned || after.Winner != "u1" || len(after.Moves) != 0 {
				t.Fatalf("ended record overwritten: %+v", after)
			}
		})
	}
}
