package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appcfg "github.com/park285/deathstacks/internal/config"
	"github.com/park285/deathstacks/internal/msgcat"
	"github.com/park285/deathstacks/internal/obslog"
	"github.com/park285/deathstacks/internal/pvpstacks"
	"github.com/park285/deathstacks/internal/render"
	"github.com/park285/deathstacks/internal/stacks"
)

// table is one hot-seat game, played either in memory or through redis.
type table interface {
	Load(ctx context.Context, notation string) error
	// Play returns the user-facing message and whether the move was applied.
	Play(ctx context.Context, side stacks.Color, move string) (string, bool, error)
	Resign(ctx context.Context, side stacks.Color) (string, error)
	OfferDraw(ctx context.Context, side stacks.Color) (string, error)
	Board(ctx context.Context) (*stacks.Board, error)
	Status(ctx context.Context) (status, info string)
	Finished(ctx context.Context) bool
	LastMove(ctx context.Context) *render.MoveHighlight
	Close() error
}

const (
	redSeat  stacks.PlayerID = "red"
	blueSeat stacks.PlayerID = "blue"
)

type localTable struct {
	cat    *msgcat.Catalog
	sess   *stacks.Session
	offers map[stacks.Color]bool
	status string
	info   string
}

func newLocalTable(cat *msgcat.Catalog) *localTable {
	return &localTable{
		cat:    cat,
		sess:   stacks.NewSession(redSeat, blueSeat),
		offers: map[stacks.Color]bool{},
		status: "Started",
	}
}

func seatOf(c stacks.Color) stacks.PlayerID {
	if c == stacks.Blue {
		return blueSeat
	}
	return redSeat
}

func (t *localTable) Load(_ context.Context, notation string) error {
	return t.sess.LoadState(notation)
}

func (t *localTable) Play(_ context.Context, side stacks.Color, move string) (string, bool, error) {
	if err := t.sess.Play(move, seatOf(side)); err != nil {
		return pvpstacks.RejectionText(t.cat, err, move), false, nil
	}
	clear(t.offers)
	msg := t.cat.Text("stacks.move.accepted", map[string]any{"Player": side.String(), "Move": move}, move)
	switch {
	case t.sess.IsDraw():
		t.status, t.info = "Draw", "draw game"
		msg += "\n" + t.cat.Text("stacks.finish.repetition", nil, t.info)
	case t.sess.IsFinished():
		t.status, t.info = "Finished", side.String()+" won"
		msg += "\n" + t.cat.Text("stacks.finish.won", map[string]any{"Winner": side.String()}, t.info)
	}
	return msg, true, nil
}

func (t *localTable) Resign(_ context.Context, side stacks.Color) (string, error) {
	if t.sess.IsFinished() {
		return t.cat.Text("stacks.game.not_active", nil, "This game is already over."), nil
	}
	winner := side.Opponent()
	t.sess.Finish(seatOf(winner))
	t.status, t.info = "Surrendered", side.String()+" gave up"
	return t.cat.Text("stacks.finish.resigned", map[string]any{"Winner": winner.String(), "Loser": side.String()}, t.info), nil
}

func (t *localTable) OfferDraw(_ context.Context, side stacks.Color) (string, error) {
	if t.sess.IsFinished() {
		return t.cat.Text("stacks.game.not_active", nil, "This game is already over."), nil
	}
	if t.offers[side] {
		return t.cat.Text("stacks.draw.already", map[string]any{"Opponent": side.Opponent().String()}, "You already called draw."), nil
	}
	t.offers[side] = true
	if t.offers[side.Opponent()] {
		t.sess.Finish("")
		t.status, t.info = "Draw", "draw game"
		return t.cat.Text("stacks.finish.agreed", nil, t.info), nil
	}
	t.info = side.String() + " called draw"
	return t.cat.Text("stacks.draw.offered", map[string]any{"Player": side.String()}, t.info), nil
}

func (t *localTable) Board(context.Context) (*stacks.Board, error) { return t.sess.Board(), nil }

func (t *localTable) Status(context.Context) (string, string) { return t.status, t.info }

func (t *localTable) Finished(context.Context) bool { return t.sess.IsFinished() }

func (t *localTable) LastMove(context.Context) *render.MoveHighlight {
	moves := t.sess.Moves()
	if len(moves) == 0 {
		return nil
	}
	return highlightOf(moves[len(moves)-1].Text)
}

func (t *localTable) Close() error { return nil }

// redisTable seats two per-run users in a redis-backed game.
type redisTable struct {
	mgr    *pvpstacks.Manager
	repo   *pvpstacks.Repository
	gameID string
	red    string
	blue   string
}

func newRedisTable(ctx context.Context, cfg *appcfg.AppConfig, cat *msgcat.Catalog) (*redisTable, error) {
	opts := []pvpstacks.Option{
		pvpstacks.WithTTL(cfg.GameTTL),
		pvpstacks.WithCatalog(cat),
		pvpstacks.WithRenderer(render.NewSVGBoardRenderer(cfg.RenderSquareSize)),
	}
	var repo *pvpstacks.Repository
	if cfg.DatabaseURL != "" {
		r, err := pvpstacks.NewRepository(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("repository init: %w", err)
		}
		if err := r.Migrate(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		repo = r
		opts = append(opts, pvpstacks.WithRepository(r))
	}
	mgr, err := pvpstacks.NewManager(cfg.RedisURL, opts...)
	if err != nil {
		if repo != nil {
			_ = repo.Close()
		}
		return nil, fmt.Errorf("stacks manager init: %w", err)
	}

	run := uuid.NewString()[:8]
	t := &redisTable{mgr: mgr, repo: repo, red: "cli-" + run + "-red", blue: "cli-" + run + "-blue"}
	g, err := mgr.CreateGame(ctx, t.red, "red", t.blue, "blue", "red")
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	t.gameID = g.ID
	obslog.L().Info("stacks_cli_game", zap.String("game_id", g.ID))
	return t, nil
}

func (t *redisTable) userOf(c stacks.Color) string {
	if c == stacks.Blue {
		return t.blue
	}
	return t.red
}

func (t *redisTable) game(ctx context.Context) (*pvpstacks.Game, error) {
	g, err := t.mgr.LoadGame(ctx, t.gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, pvpstacks.ErrGameNotFound
	}
	return g, nil
}

func (t *redisTable) Load(ctx context.Context, notation string) error {
	_, _, err := t.mgr.LoadState(ctx, t.gameID, notation, "")
	return err
}

func (t *redisTable) Play(ctx context.Context, side stacks.Color, move string) (string, bool, error) {
	before, err := t.game(ctx)
	if err != nil {
		return "", false, err
	}
	g, msg, err := t.mgr.PlayMove(ctx, t.userOf(side), move)
	if errors.Is(err, pvpstacks.ErrGameNotFound) {
		return msg, false, nil
	}
	if err != nil {
		return "", false, err
	}
	return msg, g != nil && len(g.Moves) > len(before.Moves), nil
}

func (t *redisTable) Resign(ctx context.Context, side stacks.Color) (string, error) {
	_, msg, err := t.mgr.Resign(ctx, t.userOf(side))
	if errors.Is(err, pvpstacks.ErrGameNotFound) || errors.Is(err, pvpstacks.ErrGameNotActive) {
		return "This game is already over.", nil
	}
	return msg, err
}

func (t *redisTable) OfferDraw(ctx context.Context, side stacks.Color) (string, error) {
	_, msg, err := t.mgr.OfferDraw(ctx, t.userOf(side))
	if errors.Is(err, pvpstacks.ErrGameNotFound) || errors.Is(err, pvpstacks.ErrGameNotActive) {
		return "This game is already over.", nil
	}
	return msg, err
}

func (t *redisTable) Board(ctx context.Context) (*stacks.Board, error) {
	g, err := t.game(ctx)
	if err != nil {
		return nil, err
	}
	b := stacks.NewBoard()
	if err := b.LoadState(g.Board); err != nil {
		return nil, err
	}
	return b, nil
}

func (t *redisTable) Status(ctx context.Context) (string, string) {
	g, err := t.game(ctx)
	if err != nil {
		return "Unknown", err.Error()
	}
	return g.StatusText(), g.Info()
}

func (t *redisTable) Finished(ctx context.Context) bool {
	g, err := t.game(ctx)
	return err != nil || !g.Active()
}

func (t *redisTable) LastMove(ctx context.Context) *render.MoveHighlight {
	g, err := t.game(ctx)
	if err != nil || len(g.Moves) == 0 {
		return nil
	}
	return highlightOf(g.Moves[len(g.Moves)-1].Move)
}

func (t *redisTable) Close() error {
	err := t.mgr.Close()
	if t.repo != nil {
		if rerr := t.repo.Close(); err == nil {
			err = rerr
		}
	}
	return err
}

func highlightOf(move string) *render.MoveHighlight {
	m, err := stacks.ParseMove(move)
	if err != nil {
		return nil
	}
	return &render.MoveHighlight{From: m.Start, To: m.End}
}
