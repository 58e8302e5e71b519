package pvpstacks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/park285/deathstacks/pkg/stacksdto"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "stacks.db")
	repo, err := NewRepository("sqlite://" + path)
	if err != nil {
		// go-sqlite3 needs cgo
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return repo
}

func TestResolveDSN(t *testing.T) {
	cases := []struct {
		raw     string
		driver  string
		dialect dialect
		wantErr bool
	}{
		{"postgres://u:p@localhost/db", "postgres", dialectPostgres, false},
		{"postgresql://localhost/db", "postgres", dialectPostgres, false},
		{"file:memdb?mode=memory", "sqlite3", dialectSQLite, false},
		{"sqlite://", "", 0, true},
		{"mysql://localhost/db", "", 0, true},
	}
	for _, tc := range cases {
		driver, _, d, err := resolveDSN(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.raw)
			}
			continue
		}
		if err != nil || driver != tc.driver || d != tc.dialect {
			t.Fatalf("%s: got %s %v %v", tc.raw, driver, d, err)
		}
	}
	if _, err := NewRepository("  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: dialectPostgres}
	lite := &Repository{dialect: dialectSQLite}
	q := "SELECT * FROM t WHERE a = $1 AND b = $12"
	if got := pg.rebind(q); got != q {
		t.Fatalf("postgres rebind changed query: %s", got)
	}
	if got := lite.rebind(q); got != "SELECT * FROM t WHERE a = ? AND b = ?" {
		t.Fatalf("sqlite rebind = %s", got)
	}
}

func TestRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := &Game{
		ID:        "stacks-1",
		Board:     ",,,,,/,,,,,/,,,,,/,,,,,/,,,,,/rrrrrbbbbb,,,,,",
		States:    []string{fiveEach, ",,,,,/,,,,,/,,,,,/,,,,,/,,,,,/rrrrrbbbbb,,,,,"},
		Moves:     []stacksdto.MoveEntry{{Move: "a6-5-a1", State: ",,,,,/,,,,,/,,,,,/,,,,,/,,,,,/rrrrrbbbbb,,,,,", Player: "u1"}},
		Status:    StatusFinished,
		RedID:     "u1",
		RedName:   "Alice",
		BlueID:    "u2",
		BlueName:  "Bob",
		Winner:    "u1",
		Outcome:   "red",
		CreatedAt: start,
		UpdatedAt: start.Add(90 * time.Second),
	}
	if err := repo.SaveResult(ctx, g, MethodDomination); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	got, err := repo.GetResult(ctx, "stacks-1")
	if err != nil || got == nil {
		t.Fatalf("GetResult: %v %+v", err, got)
	}
	if got.Result != "red" || got.ResultMethod != MethodDomination || got.RedName != "Alice" || got.BlueID != "u2" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.Duration != 90*time.Second || !got.StartedAt.Equal(start) {
		t.Fatalf("timing: %v %v", got.Duration, got.StartedAt)
	}
	if len(got.Moves) != 1 || got.Moves[0].Move != "a6-5-a1" || len(got.States) != 2 || got.FinalBoard != g.Board {
		t.Fatalf("history: %+v", got)
	}

	g.Outcome = "draw"
	if err := repo.SaveResult(ctx, g, MethodAgreement); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ = repo.GetResult(ctx, "stacks-1")
	if got.Result != "draw" || got.ResultMethod != MethodAgreement {
		t.Fatalf("upsert not applied: %+v", got)
	}

	missing, err := repo.GetResult(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing row: %v %+v", err, missing)
	}
}

func TestManager_ArchivesFinishedGames(t *testing.T) {
	repo := newTestRepository(t)
	m, _ := newTestManager(t, WithRepository(repo))
	ctx := context.Background()

	g := newRedVsBlue(t, m)
	if _, _, err := m.LoadState(ctx, g.ID, fiveEach, Red); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	mustPlay(t, m, "u1", "a6-5-a1")

	got, err := repo.GetResult(ctx, g.ID)
	if err != nil || got == nil {
		t.Fatalf("archived game missing: %v", err)
	}
	if got.Result != "red" || got.ResultMethod != MethodDomination || len(got.States) != 3 {
		t.Fatalf("unexpected archive: %+v", got)
	}

	other, err := m.CreateGame(ctx, "u3", "Carol", "u4", "Dan", "red")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, _, err := m.Resign(ctx, "u3"); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	got, _ = repo.GetResult(ctx, other.ID)
	if got == nil || got.Result != "blue" || got.ResultMethod != MethodResignation {
		t.Fatalf("resign archive: %+v", got)
	}
}
