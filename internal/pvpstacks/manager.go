package pvpstacks

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/deathstacks/internal/msgcat"
	"github.com/park285/deathstacks/internal/obslog"
	"github.com/park285/deathstacks/internal/render"
	"github.com/park285/deathstacks/internal/stacks"
	"github.com/park285/deathstacks/pkg/stacksdto"
)

const defaultGameTTL = 24 * time.Hour

type Manager struct {
	rdb      *redis.Client
	ttl      time.Duration
	repo     *Repository
	catalog  *msgcat.Catalog
	renderer render.BoardRenderer
}

type Option func(*Manager)

// WithTTL sets the expiry of game records and user indexes.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

func WithRepository(r *Repository) Option { return func(m *Manager) { m.repo = r } }

func WithCatalog(c *msgcat.Catalog) Option {
	return func(m *Manager) {
		if c != nil {
			m.catalog = c
		}
	}
}

func WithRenderer(r render.BoardRenderer) Option {
	return func(m *Manager) {
		if r != nil {
			m.renderer = r
		}
	}
}

func NewManager(redisURL string, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for stacks manager")
	}
	ropts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	m, err := NewManagerWithClient(rdb, opts...)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return m, nil
}

// NewManagerWithClient wraps an existing client. The caller owns its lifecycle
// unless Close is called. Without WithCatalog the embedded messages are used.
func NewManagerWithClient(rdb *redis.Client, opts ...Option) (*Manager, error) {
	m := &Manager{
		rdb:      rdb,
		ttl:      defaultGameTTL,
		renderer: render.NewSVGBoardRenderer(render.DefaultSquareSize),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.catalog == nil {
		cat, err := msgcat.New("")
		if err != nil {
			return nil, fmt.Errorf("load messages: %w", err)
		}
		m.catalog = cat
	}
	return m, nil
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachRepository wires a database repository for archiving finished games.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// CreateGame seats two users. colorChoice picks the first user's side:
// red/r, blue/b, anything else is random.
func (m *Manager) CreateGame(ctx context.Context, firstID, firstName, secondID, secondName, colorChoice string) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("stacks manager not initialized")
	}
	firstID, secondID = strings.TrimSpace(firstID), strings.TrimSpace(secondID)
	if firstID == "" || secondID == "" || firstID == secondID {
		return nil, fmt.Errorf("%w: participants", ErrInvalidArgs)
	}

	redID, redName := firstID, firstName
	blueID, blueName := secondID, secondName
	switch strings.ToLower(strings.TrimSpace(colorChoice)) {
	case "red", "r":
	case "blue", "b":
		redID, redName, blueID, blueName = secondID, secondName, firstID, firstName
	default: // crypto/rand
		if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
			redID, redName, blueID, blueName = secondID, secondName, firstID, firstName
		}
	}

	now := time.Now()
	g := &Game{
		ID:        "stacks-" + uuid.NewString(),
		Board:     stacks.StartNotation,
		States:    []string{stacks.StartNotation},
		Moves:     []stacksdto.MoveEntry{},
		Turn:      Red,
		Status:    StatusActive,
		RedID:     redID,
		RedName:   strings.TrimSpace(redName),
		BlueID:    blueID,
		BlueName:  strings.TrimSpace(blueName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.save(ctx, g); err != nil {
		return nil, err
	}
	if err := m.indexParticipants(ctx, g.ID, g.RedID, g.BlueID); err != nil {
		return nil, err
	}
	obslog.L().Info("stacks_game_create",
		zap.String("game_id", g.ID),
		zap.String("red_id", g.RedID),
		zap.String("blue_id", g.BlueID),
	)
	return g, nil
}

// GetActiveGameByUser returns the most recently updated active game of a user, nil when none.
func (m *Manager) GetActiveGameByUser(ctx context.Context, userID string) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("stacks manager not initialized")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var list []*Game
	for _, id := range ids {
		g, gerr := m.get(ctx, id)
		if gerr == nil && g != nil && g.Active() {
			list = append(list, g)
		}
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list[0], nil
}

// flow-control sentinels inside WATCH callbacks
var (
	errNotYourTurn = errors.New("not_your_turn")
	errIllegalMove = errors.New("illegal_move")
)

// PlayMove applies a move for the user's active game. Rule violations, wrong
// turns and lost races come back as a message with a nil error.
func (m *Manager) PlayMove(ctx context.Context, userID, moveStr string) (*Game, string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, "", fmt.Errorf("%w: user", ErrInvalidArgs)
	}
	g, err := m.GetActiveGameByUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if g == nil {
		return nil, m.text("stacks.game.none", nil, "You have no active game."), ErrGameNotFound
	}

	gameK := gameKey(g.ID)
	oldLen := len(g.Moves)
	moveStr = strings.TrimSpace(moveStr)
	var resultText string

	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadTx(ctx, tx, gameK)
		if err != nil {
			return err
		}
		if !cur.Active() {
			return ErrGameNotActive
		}
		if len(cur.Moves) != oldLen {
			return redis.TxFailedErr
		}

		sess, err := cur.session()
		if err != nil {
			return fmt.Errorf("restore session: %w", err)
		}
		if perr := sess.Play(moveStr, stacks.PlayerID(userID)); perr != nil {
			switch {
			case errors.Is(perr, stacks.ErrUnknownPlayer):
				return ErrNotParticipant
			case errors.Is(perr, stacks.ErrNotYourTurn):
				return errNotYourTurn
			}
			resultText = m.rejectionText(perr, moveStr)
			return errIllegalMove
		}

		mover, _ := cur.colorOf(userID)
		now := time.Now()
		cur.Board = sess.DumpState()
		cur.States = sess.History()
		cur.Moves = append(cur.Moves, stacksdto.MoveEntry{Move: moveStr, State: cur.Board, Player: userID})
		cur.Turn = colorFrom(sess.Next())
		cur.DrawOffers = nil
		cur.UpdatedAt = now
		switch {
		case sess.IsDraw():
			cur.Status = StatusDraw
			cur.Outcome = "draw"
			cur.Method = MethodRepetition
		case sess.IsFinished():
			cur.Status = StatusFinished
			cur.Winner = userID
			cur.Outcome = string(mover)
			cur.Method = MethodDomination
		}

		if err := m.writeTx(ctx, tx, gameK, cur); err != nil {
			return err
		}
		g = cur
		resultText = m.text("stacks.move.accepted", map[string]any{"Player": cur.nameOf(mover), "Move": moveStr}, moveStr)
		if fin := m.finishText(cur); fin != "" {
			resultText += "\n" + fin
		}
		return nil
	}, gameK)

	if err != nil {
		switch {
		case errors.Is(err, redis.TxFailedErr):
			return g, m.retryText(), nil
		case errors.Is(err, ErrGameNotActive):
			return g, m.text("stacks.game.not_active", nil, "This game is already over."), nil
		case errors.Is(err, errIllegalMove):
			obslog.L().Info("stacks_move_rejected",
				zap.String("game_id", g.ID),
				zap.String("user_id", userID),
				zap.String("move", moveStr),
			)
			return g, resultText, nil
		case errors.Is(err, errNotYourTurn):
			return g, m.text("stacks.turn.not_yours", nil, "It is not your turn."), nil
		}
		return nil, "", err
	}

	obslog.L().Info("stacks_move",
		zap.String("game_id", g.ID),
		zap.String("user_id", userID),
		zap.String("move", moveStr),
		zap.String("turn", string(g.Turn)),
		zap.String("status", string(g.Status)),
		zap.String("outcome", g.Outcome),
	)
	_ = m.persistIfFinal(ctx, g)
	return g, resultText, nil
}

// LoadState replaces the position of an active game and optionally sets the
// side to move (empty keeps the current turn). The notation joins the history.
// A concurrent write yields the unchanged game, a retry message and a nil error.
func (m *Manager) LoadState(ctx context.Context, gameID, notation string, next Color) (*Game, string, error) {
	if m == nil || m.rdb == nil {
		return nil, "", fmt.Errorf("stacks manager not initialized")
	}
	if next != "" && next != Red && next != Blue {
		return nil, "", fmt.Errorf("%w: next color %q", ErrInvalidArgs, next)
	}
	gameK := gameKey(gameID)
	var before, out *Game
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadTx(ctx, tx, gameK)
		if err != nil {
			return err
		}
		if !cur.Active() {
			return ErrGameNotActive
		}
		snap := *cur
		before = &snap
		sess, err := cur.session()
		if err != nil {
			return fmt.Errorf("restore session: %w", err)
		}
		if err := sess.LoadState(notation); err != nil {
			return stacksdto.DomainError{Code: "malformed_board", Message: err.Error()}
		}
		cur.Board = sess.DumpState()
		cur.States = sess.History()
		if next != "" {
			cur.Turn = next
		}
		cur.UpdatedAt = time.Now()
		if err := m.writeTx(ctx, tx, gameK, cur); err != nil {
			return err
		}
		out = cur
		return nil
	}, gameK)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return before, m.retryText(), nil
		}
		return nil, "", err
	}
	obslog.L().Info("stacks_load_state", zap.String("game_id", out.ID), zap.String("board", out.Board), zap.String("turn", string(out.Turn)))
	return out, m.text("stacks.game.loaded", nil, "Position loaded."), nil
}

// Resign ends the user's active game; the opponent wins. Losing a race to a
// concurrent write returns the game as it was with a retry message.
func (m *Manager) Resign(ctx context.Context, userID string) (*Game, string, error) {
	userID = strings.TrimSpace(userID)
	g, err := m.GetActiveGameByUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if g == nil {
		return nil, "", ErrGameNotFound
	}
	gameK := gameKey(g.ID)
	before := g
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadTx(ctx, tx, gameK)
		if err != nil {
			return err
		}
		if !cur.Active() {
			return ErrGameNotActive
		}
		c, ok := cur.colorOf(userID)
		if !ok {
			return ErrNotParticipant
		}
		cur.Status = StatusResigned
		cur.Winner = cur.idOf(c.opponent())
		cur.Outcome = string(c.opponent())
		cur.Method = MethodResignation
		cur.DrawOffers = nil
		cur.UpdatedAt = time.Now()
		if err := m.writeTx(ctx, tx, gameK, cur); err != nil {
			return err
		}
		g = cur
		return nil
	}, gameK)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return before, m.retryText(), nil
		}
		return nil, "", err
	}
	obslog.L().Info("stacks_resign",
		zap.String("game_id", g.ID),
		zap.String("resigner", userID),
		zap.String("winner", g.Winner),
	)
	_ = m.persistIfFinal(ctx, g)
	return g, m.finishText(g), nil
}

// OfferDraw records a draw request. The game is drawn once both players asked.
func (m *Manager) OfferDraw(ctx context.Context, userID string) (*Game, string, error) {
	userID = strings.TrimSpace(userID)
	g, err := m.GetActiveGameByUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if g == nil {
		return nil, "", ErrGameNotFound
	}
	gameK := gameKey(g.ID)
	before := g
	var text string
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadTx(ctx, tx, gameK)
		if err != nil {
			return err
		}
		if !cur.Active() {
			return ErrGameNotActive
		}
		c, ok := cur.colorOf(userID)
		if !ok {
			return ErrNotParticipant
		}
		if cur.hasOffered(userID) {
			g = cur
			text = m.text("stacks.draw.already", map[string]any{"Opponent": cur.nameOf(c.opponent())}, "You already called draw.")
			return nil
		}
		cur.DrawOffers = append(cur.DrawOffers, userID)
		if cur.hasOffered(cur.idOf(c.opponent())) {
			cur.Status = StatusDraw
			cur.Outcome = "draw"
			cur.Method = MethodAgreement
		}
		cur.UpdatedAt = time.Now()
		if err := m.writeTx(ctx, tx, gameK, cur); err != nil {
			return err
		}
		g = cur
		if cur.Status == StatusDraw {
			text = m.finishText(cur)
		} else {
			text = m.text("stacks.draw.offered", map[string]any{"Player": cur.nameOf(c)}, cur.Info())
		}
		return nil
	}, gameK)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return before, m.retryText(), nil
		}
		return nil, "", err
	}
	obslog.L().Info("stacks_draw_offer",
		zap.String("game_id", g.ID),
		zap.String("user_id", userID),
		zap.String("status", string(g.Status)),
	)
	_ = m.persistIfFinal(ctx, g)
	return g, text, nil
}

// LoadGame returns the game by ID, nil when absent or expired.
func (m *Manager) LoadGame(ctx context.Context, id string) (*Game, error) {
	return m.get(ctx, id)
}

func (m *Manager) text(key string, data map[string]any, fallback string) string {
	return m.catalog.Text(key, data, fallback)
}

func (m *Manager) retryText() string {
	return m.text("stacks.game.retry", nil, "A concurrent command was detected. Please try again.")
}

func (m *Manager) rejectionText(err error, moveStr string) string {
	return RejectionText(m.catalog, err, moveStr)
}

// RejectionText maps a stacks rule error to its catalog message.
func RejectionText(c *msgcat.Catalog, err error, moveStr string) string {
	data := map[string]any{"Move": moveStr}
	switch {
	case errors.Is(err, stacks.ErrMoveFormat):
		return c.Text("stacks.move.format", data, "Malformed move.")
	case errors.Is(err, stacks.ErrForcedMove):
		return c.Text("stacks.move.forced", data, "Reduce your tall stack first.")
	case errors.Is(err, stacks.ErrNotOwner):
		return c.Text("stacks.move.not_owner", data, "That stack is not yours.")
	case errors.Is(err, stacks.ErrUnreachable):
		return c.Text("stacks.move.unreachable", data, "Destination not reachable.")
	case errors.Is(err, stacks.ErrNotYourTurn):
		return c.Text("stacks.turn.not_yours", nil, "It is not your turn.")
	case errors.Is(err, stacks.ErrGameFinished):
		return c.Text("stacks.game.not_active", nil, "This game is already over.")
	default:
		return c.Text("stacks.move.rejected", data, "Move rejected.")
	}
}

func (m *Manager) finishText(g *Game) string {
	switch g.Status {
	case StatusFinished:
		c, _ := g.colorOf(g.Winner)
		return m.text("stacks.finish.won", map[string]any{"Winner": g.nameOf(c)}, g.Info())
	case StatusResigned:
		c, _ := g.colorOf(g.Winner)
		return m.text("stacks.finish.resigned", map[string]any{"Winner": g.nameOf(c), "Loser": g.nameOf(c.opponent())}, g.Info())
	case StatusDraw:
		if g.Method == MethodAgreement {
			return m.text("stacks.finish.agreed", nil, g.Info())
		}
		return m.text("stacks.finish.repetition", nil, g.Info())
	}
	return ""
}

// Persistence
func loadTx(ctx context.Context, tx *redis.Tx, key string) (*Game, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (m *Manager) writeTx(ctx context.Context, tx *redis.Tx, key string, g *Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, raw, m.ttl)
		return nil
	})
	return err
}

func (m *Manager) save(ctx context.Context, g *Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, gameKey(g.ID), raw, m.ttl).Err()
}

func (m *Manager) get(ctx context.Context, id string) (*Game, error) {
	raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (m *Manager) indexParticipants(ctx context.Context, id string, users ...string) error {
	for _, u := range users {
		if strings.TrimSpace(u) == "" {
			continue
		}
		key := idxUserKey(u)
		if err := m.rdb.SAdd(ctx, key, id).Err(); err != nil {
			return err
		}
		// 인덱스 키 TTL도 게임 TTL과 동일하게 갱신
		_ = m.rdb.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

func gameKey(id string) string        { return "stacks:game:" + strings.TrimSpace(id) }
func idxUserKey(userID string) string { return "stacks:index:user:" + strings.TrimSpace(userID) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

// persistIfFinal archives a finished game when a repository is attached.
func (m *Manager) persistIfFinal(ctx context.Context, g *Game) error {
	if m == nil || m.repo == nil || g == nil || g.Active() {
		return nil
	}
	if err := m.repo.SaveResult(ctx, g, g.Method); err != nil {
		obslog.L().Error("stacks_result_persist_error", zap.String("game_id", g.ID), zap.String("outcome", g.Outcome), zap.Error(err))
		return err
	}
	obslog.L().Info("stacks_result_persist", zap.String("game_id", g.ID), zap.String("outcome", g.Outcome), zap.String("method", g.Method))
	return nil
}
