// Package sqlite provides a single-file SQLite implementation of the storage
// interface for self-hosted deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
	"github.com/mcoot/bidwars/internal/storage/sqlite/migrations"
)

// Storage persists game state in SQLite. The handle is limited to one
// connection so every statement, including the resolution claim, runs
// serially.
type Storage struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens the database at path and applies embedded migrations
func Open(ctx context.Context, path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database handle
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	items, err := json.Marshal(room.Items)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rooms (id, code, phase, host_id, current_round, max_rounds, items,
		   last_resolved_round, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(room.ID), string(room.Code), string(room.Phase), string(room.HostID),
		room.CurrentRound, room.MaxRounds, string(items), room.LastResolvedRound,
		toMillis(room.CreatedAt), toMillis(room.UpdatedAt),
	)
	if err != nil {
		return model.StorageFailure("create room", err)
	}
	return nil
}

const selectRoom = `SELECT id, code, phase, host_id, current_round, max_rounds, items,
	last_resolved_round, created_at, updated_at FROM rooms `

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return s.getRoom(ctx, selectRoom+`WHERE id = ?`, string(id))
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return s.getRoom(ctx, selectRoom+`WHERE code = ?`, string(code))
}

func (s *Storage) getRoom(ctx context.Context, query string, arg string) (*model.Room, error) {
	var (
		room                 model.Room
		id, code, phase      string
		hostID               string
		items                sql.NullString
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&id, &code, &phase, &hostID,
		&room.CurrentRound, &room.MaxRounds, &items, &room.LastResolvedRound,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrRoomNotFound
		}
		return nil, model.StorageFailure("get room", err)
	}
	room.ID = model.RoomID(id)
	room.Code = model.RoomCode(code)
	room.Phase = model.Phase(phase)
	room.HostID = model.PlayerID(hostID)
	room.CreatedAt = fromMillis(createdAt)
	room.UpdatedAt = fromMillis(updatedAt)
	if items.Valid && items.String != "" {
		if err := json.Unmarshal([]byte(items.String), &room.Items); err != nil {
			return nil, fmt.Errorf("decode room items: %w", err)
		}
	}
	return &room, nil
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE code = ?)`, string(code)).Scan(&exists)
	if err != nil {
		return false, model.StorageFailure("room code exists", err)
	}
	return exists == 1, nil
}

func roomUpdateSet(update model.RoomUpdate) (string, []any, error) {
	sets := []string{"updated_at = ?"}
	args := []any{toMillis(time.Now())}
	if update.Phase != nil {
		sets = append(sets, "phase = ?")
		args = append(args, string(*update.Phase))
	}
	if update.CurrentRound != nil {
		sets = append(sets, "current_round = ?")
		args = append(args, *update.CurrentRound)
	}
	if update.Items != nil {
		items, err := json.Marshal(update.Items)
		if err != nil {
			return "", nil, err
		}
		sets = append(sets, "items = ?")
		args = append(args, string(items))
	}
	return `UPDATE rooms SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`, args, nil
}

func (s *Storage) UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) error {
	query, args, err := roomUpdateSet(update)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, append(args, string(id))...)
	if err != nil {
		return model.StorageFailure("update room", err)
	}
	return requireRow(res, model.ErrRoomNotFound, "update room")
}

func (s *Storage) TransitionRoom(ctx context.Context, id model.RoomID, from model.Phase, fromRound int, update model.RoomUpdate) (bool, error) {
	query, args, err := roomUpdateSet(update)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, query+` AND phase = ? AND current_round = ?`,
		append(args, string(id), string(from), fromRound)...,
	)
	if err != nil {
		return false, model.StorageFailure("transition room", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, model.StorageFailure("transition room", err)
	}
	if n == 1 {
		return true, nil
	}
	return false, s.requireRoom(ctx, id, "transition room")
}

func (s *Storage) ClaimResolution(ctx context.Context, id model.RoomID, round int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rooms SET last_resolved_round = ? WHERE id = ? AND last_resolved_round < ?`,
		round, string(id), round,
	)
	if err != nil {
		return false, model.StorageFailure("claim resolution", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, model.StorageFailure("claim resolution", err)
	}
	if n == 1 {
		return true, nil
	}

	return false, s.requireRoom(ctx, id, "claim resolution")
}

func (s *Storage) requireRoom(ctx context.Context, id model.RoomID, op string) error {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = ?)`, string(id)).Scan(&exists); err != nil {
		return model.StorageFailure(op, err)
	}
	if exists == 0 {
		return model.ErrRoomNotFound
	}
	return nil
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, room_id, display_name, capital, eliminated, is_ai, bot_strategy, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(player.ID), string(player.RoomID), player.DisplayName, player.Capital,
		player.Eliminated, player.IsAI, player.BotStrategy, toMillis(player.JoinedAt),
	)
	if err != nil {
		return model.StorageFailure("create player", err)
	}
	return nil
}

// JoinRoom checks the phase and seat count in the same statement as the
// insert, which the single connection makes atomic.
func (s *Storage) JoinRoom(ctx context.Context, player *model.Player, maxPlayers int) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, room_id, display_name, capital, eliminated, is_ai, bot_strategy, joined_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM rooms WHERE id = ? AND phase = ?)
		   AND (SELECT COUNT(*) FROM players WHERE room_id = ?) < ?`,
		string(player.ID), string(player.RoomID), player.DisplayName, player.Capital,
		player.Eliminated, player.IsAI, player.BotStrategy, toMillis(player.JoinedAt),
		string(player.RoomID), string(model.PhaseWaiting),
		string(player.RoomID), maxPlayers,
	)
	if err != nil {
		return model.StorageFailure("join room", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.StorageFailure("join room", err)
	}
	if n == 1 {
		return nil
	}

	var phase string
	err = s.db.QueryRowContext(ctx, `SELECT phase FROM rooms WHERE id = ?`, string(player.RoomID)).Scan(&phase)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrRoomNotFound
		}
		return model.StorageFailure("join room", err)
	}
	if model.Phase(phase) != model.PhaseWaiting {
		return model.ErrGameAlreadyStarted
	}
	return model.ErrRoomFull
}

const selectPlayer = `SELECT id, room_id, display_name, capital, eliminated, is_ai,
	bot_strategy, joined_at FROM players `

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row scanner) (*model.Player, error) {
	var (
		p          model.Player
		id, roomID string
		joinedAt   int64
	)
	if err := row.Scan(&id, &roomID, &p.DisplayName, &p.Capital, &p.Eliminated, &p.IsAI, &p.BotStrategy, &joinedAt); err != nil {
		return nil, err
	}
	p.ID = model.PlayerID(id)
	p.RoomID = model.RoomID(roomID)
	p.JoinedAt = fromMillis(joinedAt)
	return &p, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	player, err := scanPlayer(s.db.QueryRowContext(ctx, selectPlayer+`WHERE id = ?`, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, model.StorageFailure("get player", err)
	}
	return player, nil
}

func (s *Storage) ListPlayers(ctx context.Context, roomID model.RoomID) ([]*model.Player, error) {
	rows, err := s.db.QueryContext(ctx, selectPlayer+`WHERE room_id = ? ORDER BY seq`, string(roomID))
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
	var capital sql.NullInt64
	if update.Capital != nil {
		capital = sql.NullInt64{Int64: *update.Capital, Valid: true}
	}
	eliminate := update.Eliminated != nil && *update.Eliminated

	res, err := s.db.ExecContext(ctx,
		`UPDATE players
		 SET capital = COALESCE(?, capital),
		     eliminated = MAX(eliminated, ?)
		 WHERE id = ?`,
		capital, eliminate, string(id),
	)
	if err != nil {
		return model.StorageFailure("update player", err)
	}
	return requireRow(res, model.ErrPlayerNotFound, "update player")
}

// Bid operations

func (s *Storage) InsertBid(ctx context.Context, bid *model.Bid) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bids (room_id, player_id, round, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(bid.RoomID), string(bid.PlayerID), bid.Round, bid.Amount, toMillis(bid.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateBid
		}
		return model.StorageFailure("insert bid", err)
	}
	return nil
}

func (s *Storage) ListBids(ctx context.Context, roomID model.RoomID, round int) ([]*model.Bid, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, amount, created_at FROM bids WHERE room_id = ? AND round = ? ORDER BY seq`,
		string(roomID), round,
	)
	if err != nil {
		return nil, model.StorageFailure("list bids", err)
	}
	defer rows.Close()

	bids := []*model.Bid{}
	for rows.Next() {
		var (
			playerID  string
			amount    int64
			createdAt int64
		)
		if err := rows.Scan(&playerID, &amount, &createdAt); err != nil {
			return nil, model.StorageFailure("list bids", err)
		}
		bids = append(bids, &model.Bid{
			RoomID:    roomID,
			PlayerID:  model.PlayerID(playerID),
			Round:     round,
			Amount:    amount,
			CreatedAt: fromMillis(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, model.StorageFailure("list bids", err)
	}
	return bids, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, player_id, room_id, created_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET expires_at = excluded.expires_at`,
		session.ID, string(session.PlayerID), string(session.RoomID),
		toMillis(session.CreatedAt), toMillis(session.ExpiresAt),
	)
	if err != nil {
		return model.StorageFailure("save session", err)
	}
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var (
		sess                 model.Session
		playerID, roomID     string
		createdAt, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, player_id, room_id, created_at, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &playerID, &roomID, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, model.StorageFailure("get session", err)
	}
	sess.PlayerID = model.PlayerID(playerID)
	sess.RoomID = model.RoomID(roomID)
	sess.CreatedAt = fromMillis(createdAt)
	sess.ExpiresAt = fromMillis(expiresAt)
	return &sess, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return model.StorageFailure("delete session", err)
	}
	return nil
}

func requireRow(res sql.Result, notFound error, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return model.StorageFailure(op, err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
