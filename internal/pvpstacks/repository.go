package pvpstacks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/park285/deathstacks/pkg/stacksdto"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// Repository archives finished games in PostgreSQL or SQLite.
type Repository struct {
	db      *sql.DB
	dialect dialect
}

// NewRepository opens postgres:// and postgresql:// URLs with lib/pq, and
// sqlite://<path> or file: DSNs with go-sqlite3.
func NewRepository(databaseURL string) (*Repository, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	driver, dsn, d, err := resolveDSN(databaseURL)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if d == dialectSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(8)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db, dialect: d}, nil
}

func resolveDSN(raw string) (driver, dsn string, d dialect, err error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "postgres", raw, dialectPostgres, nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return "", "", 0, fmt.Errorf("sqlite path is empty")
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", "", 0, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
		return "sqlite3", path + "?_busy_timeout=5000&_journal_mode=WAL", dialectSQLite, nil
	case strings.HasPrefix(raw, "file:"):
		return "sqlite3", raw, dialectSQLite, nil
	default:
		return "", "", 0, fmt.Errorf("unsupported database url scheme: %s", raw)
	}
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const createPostgres = `CREATE TABLE IF NOT EXISTS stacks_games (
    game_id       TEXT PRIMARY KEY,
    red_id        TEXT NOT NULL,
    red_name      TEXT NOT NULL,
    blue_id       TEXT NOT NULL,
    blue_name     TEXT NOT NULL,
    result        TEXT NOT NULL,
    result_method TEXT NOT NULL,
    moves         JSONB NOT NULL,
    states        JSONB NOT NULL,
    final_board   TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ NOT NULL,
    duration_ms   BIGINT NOT NULL
)`

const createSQLite = `CREATE TABLE IF NOT EXISTS stacks_games (
    game_id       TEXT PRIMARY KEY,
    red_id        TEXT NOT NULL,
    red_name      TEXT NOT NULL,
    blue_id       TEXT NOT NULL,
    blue_name     TEXT NOT NULL,
    result        TEXT NOT NULL,
    result_method TEXT NOT NULL,
    moves         TEXT NOT NULL,
    states        TEXT NOT NULL,
    final_board   TEXT NOT NULL,
    started_at    TIMESTAMP NOT NULL,
    ended_at      TIMESTAMP NOT NULL,
    duration_ms   INTEGER NOT NULL
)`

// Migrate creates the archive table when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	ddl := createPostgres
	if r.dialect == dialectSQLite {
		ddl = createSQLite
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate stacks_games: %w", err)
	}
	return nil
}

var placeholderRE = regexp.MustCompile(`\$\d+`)

// rebind rewrites $n placeholders for drivers that expect ?. Arguments are
// always passed in placeholder order.
func (r *Repository) rebind(q string) string {
	if r.dialect != dialectSQLite {
		return q
	}
	return placeholderRE.ReplaceAllString(q, "?")
}

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, g *Game, method string) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	movesRaw, err := json.Marshal(g.Moves)
	if err != nil {
		return err
	}
	statesRaw, err := json.Marshal(g.States)
	if err != nil {
		return err
	}
	duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO stacks_games (
        game_id, red_id, red_name, blue_id, blue_name,
        result, result_method, moves, states, final_board,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
      ) ON CONFLICT (game_id) DO UPDATE SET
        red_id=EXCLUDED.red_id,
        red_name=EXCLUDED.red_name,
        blue_id=EXCLUDED.blue_id,
        blue_name=EXCLUDED.blue_name,
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves=EXCLUDED.moves,
        states=EXCLUDED.states,
        final_board=EXCLUDED.final_board,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, r.rebind(q),
		g.ID,
		g.RedID, g.RedName,
		g.BlueID, g.BlueName,
		strings.TrimSpace(g.Outcome), strings.TrimSpace(method),
		string(movesRaw), string(statesRaw), g.Board,
		g.CreatedAt.UTC(), g.UpdatedAt.UTC(), duration,
	)
	return err
}

// GetResult loads one archived game, nil when absent.
func (r *Repository) GetResult(ctx context.Context, gameID string) (*stacksdto.StacksGame, error) {
	q := `SELECT game_id, red_id, red_name, blue_id, blue_name, result, result_method,
        moves, states, final_board, started_at, ended_at, duration_ms
      FROM stacks_games WHERE game_id = $1`
	var (
		out                 stacksdto.StacksGame
		movesRaw, statesRaw string
		durationMS          int64
	)
	err := r.db.QueryRowContext(ctx, r.rebind(q), strings.TrimSpace(gameID)).Scan(
		&out.GameID, &out.RedID, &out.RedName, &out.BlueID, &out.BlueName,
		&out.Result, &out.ResultMethod, &movesRaw, &statesRaw, &out.FinalBoard,
		&out.StartedAt, &out.EndedAt, &durationMS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(movesRaw), &out.Moves); err != nil {
		return nil, fmt.Errorf("decode moves: %w", err)
	}
	if err := json.Unmarshal([]byte(statesRaw), &out.States); err != nil {
		return nil, fmt.Errorf("decode states: %w", err)
	}
	out.Duration = time.Duration(durationMS) * time.Millisecond
	return &out, nil
}
