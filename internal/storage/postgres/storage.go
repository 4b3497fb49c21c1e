package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
)

// uniqueViolation is the SQLSTATE for unique constraint failures
const uniqueViolation = "23505"

// Storage persists game state in PostgreSQL. The resolution claim is a
// single conditional UPDATE; bid uniqueness is a table constraint.
type Storage struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL storage on an existing pool
func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Close closes the underlying pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	const query = `
		INSERT INTO rooms (id, code, phase, host_id, current_round, max_rounds, items,
			last_resolved_round, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.pool.Exec(ctx, query,
		string(room.ID), string(room.Code), string(room.Phase), string(room.HostID),
		room.CurrentRound, room.MaxRounds, room.Items, room.LastResolvedRound,
		room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		return model.StorageFailure("create room", err)
	}
	return nil
}

const selectRoom = `
	SELECT id, code, phase, host_id, current_round, max_rounds, items,
		last_resolved_round, created_at, updated_at
	FROM rooms
`

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return s.getRoom(ctx, selectRoom+`WHERE id = $1`, string(id))
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return s.getRoom(ctx, selectRoom+`WHERE code = $1`, string(code))
}

func (s *Storage) getRoom(ctx context.Context, query string, arg string) (*model.Room, error) {
	var room model.Room
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&room.ID,
		&room.Code,
		&room.Phase,
		&room.HostID,
		&room.CurrentRound,
		&room.MaxRounds,
		&room.Items,
		&room.LastResolvedRound,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRoomNotFound
		}
		return nil, model.StorageFailure("get room", err)
	}
	return &room, nil
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE code = $1)`, string(code)).Scan(&exists)
	if err != nil {
		return false, model.StorageFailure("room code exists", err)
	}
	return exists, nil
}

// updateRoom never writes last_resolved_round; only ClaimResolution moves it
const updateRoom = `
	UPDATE rooms
	SET phase = COALESCE($2, phase),
		current_round = COALESCE($3, current_round),
		items = CASE WHEN $4 THEN $5::jsonb ELSE items END,
		updated_at = NOW()
	WHERE id = $1
`

func roomUpdateArgs(id model.RoomID, update model.RoomUpdate) []any {
	var phase *string
	if update.Phase != nil {
		p := string(*update.Phase)
		phase = &p
	}
	return []any{string(id), phase, update.CurrentRound, update.Items != nil, update.Items}
}

func (s *Storage) UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) error {
	tag, err := s.pool.Exec(ctx, updateRoom, roomUpdateArgs(id, update)...)
	if err != nil {
		return model.StorageFailure("update room", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrRoomNotFound
	}
	return nil
}

// TransitionRoom relies on the row lock taken by UPDATE: a concurrent
// transition re-evaluates the WHERE clause against the committed row and
// matches nothing.
func (s *Storage) TransitionRoom(ctx context.Context, id model.RoomID, from model.Phase, fromRound int, update model.RoomUpdate) (bool, error) {
	args := append(roomUpdateArgs(id, update), string(from), fromRound)
	tag, err := s.pool.Exec(ctx, updateRoom+` AND phase = $6 AND current_round = $7`, args...)
	if err != nil {
		return false, model.StorageFailure("transition room", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	return false, s.requireRoom(ctx, id, "transition room")
}

func (s *Storage) ClaimResolution(ctx context.Context, id model.RoomID, round int) (bool, error) {
	const query = `
		UPDATE rooms
		SET last_resolved_round = $2
		WHERE id = $1 AND last_resolved_round < $2
	`
	tag, err := s.pool.Exec(ctx, query, string(id), round)
	if err != nil {
		return false, model.StorageFailure("claim resolution", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Distinguish a lost claim from a missing room
	return false, s.requireRoom(ctx, id, "claim resolution")
}

func (s *Storage) requireRoom(ctx context.Context, id model.RoomID, op string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, string(id)).Scan(&exists); err != nil {
		return model.StorageFailure(op, err)
	}
	if !exists {
		return model.ErrRoomNotFound
	}
	return nil
}

// Player operations

const insertPlayer = `
	INSERT INTO players (id, room_id, display_name, capital, eliminated, is_ai, bot_strategy, joined_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	_, err := s.pool.Exec(ctx, insertPlayer,
		string(player.ID), string(player.RoomID), player.DisplayName, player.Capital,
		player.Eliminated, player.IsAI, player.BotStrategy, player.JoinedAt,
	)
	if err != nil {
		return model.StorageFailure("create player", err)
	}
	return nil
}

// JoinRoom locks the room row so joins and the start transition are
// serialized; the seat count is read after the lock is held.
func (s *Storage) JoinRoom(ctx context.Context, player *model.Player, maxPlayers int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.StorageFailure("join room", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var phase string
	err = tx.QueryRow(ctx, `SELECT phase FROM rooms WHERE id = $1 FOR UPDATE`, string(player.RoomID)).Scan(&phase)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrRoomNotFound
		}
		return model.StorageFailure("join room", err)
	}
	if model.Phase(phase) != model.PhaseWaiting {
		return model.ErrGameAlreadyStarted
	}

	var seated int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM players WHERE room_id = $1`, string(player.RoomID)).Scan(&seated); err != nil {
		return model.StorageFailure("join room", err)
	}
	if seated >= maxPlayers {
		return model.ErrRoomFull
	}

	_, err = tx.Exec(ctx, insertPlayer,
		string(player.ID), string(player.RoomID), player.DisplayName, player.Capital,
		player.Eliminated, player.IsAI, player.BotStrategy, player.JoinedAt,
	)
	if err != nil {
		return model.StorageFailure("join room", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.StorageFailure("join room", err)
	}
	return nil
}

const selectPlayer = `
	SELECT id, room_id, display_name, capital, eliminated, is_ai, bot_strategy, joined_at
	FROM players
`

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.ID,
		&p.RoomID,
		&p.DisplayName,
		&p.Capital,
		&p.Eliminated,
		&p.IsAI,
		&p.BotStrategy,
		&p.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	player, err := scanPlayer(s.pool.QueryRow(ctx, selectPlayer+`WHERE id = $1`, string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, model.StorageFailure("get player", err)
	}
	return player, nil
}

func (s *Storage) ListPlayers(ctx context.Context, roomID model.RoomID) ([]*model.Player, error) {
	rows, err := s.pool.Query(ctx, selectPlayer+`WHERE room_id = $1 ORDER BY seq`, string(roomID))
	if err != nil {
		return nil, model.StorageFailure("list players", err)
	}
	defer rows.Close()

	players := []*model.Player{}
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, model.StorageFailure("list players", err)
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageFailure("list players", err)
	}
	return players, nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, id model.PlayerID, update model.PlayerUpdate) error {
	// eliminated only ever moves from false to true
	const query = `
		UPDATE players
		SET capital = COALESCE($2, capital),
			eliminated = eliminated OR COALESCE($3, FALSE)
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, string(id), update.Capital, update.Eliminated)
	if err != nil {
		return model.StorageFailure("update player", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

// Bid operations

func (s *Storage) InsertBid(ctx context.Context, bid *model.Bid) error {
	const query = `
		INSERT INTO bids (room_id, player_id, round, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.pool.Exec(ctx, query, string(bid.RoomID), string(bid.PlayerID), bid.Round, bid.Amount, bid.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrDuplicateBid
		}
		return model.StorageFailure("insert bid", err)
	}
	return nil
}

func (s *Storage) ListBids(ctx context.Context, roomID model.RoomID, round int) ([]*model.Bid, error) {
	const query = `
		SELECT room_id, player_id, round, amount, created_at
		FROM bids
		WHERE room_id = $1 AND round = $2
		ORDER BY seq
	`
	rows, err := s.pool.Query(ctx, query, string(roomID), round)
	if err != nil {
		return nil, model.StorageFailure("list bids", err)
	}
	defer rows.Close()

	bids := []*model.Bid{}
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.RoomID, &b.PlayerID, &b.Round, &b.Amount, &b.CreatedAt); err != nil {
			return nil, model.StorageFailure("list bids", err)
		}
		bids = append(bids, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageFailure("list bids", err)
	}
	return bids, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	const query = `
		INSERT INTO sessions (id, player_id, room_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at
	`
	_, err := s.pool.Exec(ctx, query,
		session.ID, string(session.PlayerID), string(session.RoomID), session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return model.StorageFailure("save session", err)
	}
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id string) (*model.Session, error) {
	const query = `
		SELECT id, player_id, room_id, created_at, expires_at
		FROM sessions
		WHERE id = $1
	`
	var sess model.Session
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&sess.ID,
		&sess.PlayerID,
		&sess.RoomID,
		&sess.CreatedAt,
		&sess.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, model.StorageFailure("get session", err)
	}
	return &sess, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return model.StorageFailure("delete session", err)
	}
	return nil
}
