package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Rooms and players are hashes so single fields can be written without
// read-modify-write; every conditional write runs as a Lua script.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interfaces
var (
	_ storage.Storage   = (*Storage)(nil)
	_ storage.Publisher = (*Storage)(nil)
)

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	items, err := json.Marshal(room.Items)
	if err != nil {
		return err
	}

	key := roomKey(room.ID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"id":                  string(room.ID),
		"code":                string(room.Code),
		"phase":               string(room.Phase),
		"host_id":             string(room.HostID),
		"current_round":       room.CurrentRound,
		"max_rounds":          room.MaxRounds,
		"last_resolved_round": room.LastResolvedRound,
		"items":               string(items),
		"created_at":          formatTime(room.CreatedAt),
		"updated_at":          formatTime(room.UpdatedAt),
	})
	pipe.Expire(ctx, key, s.cfg.RoomTTL)
	pipe.Set(ctx, roomCodeKey(room.Code), string(room.ID), s.cfg.RoomTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.StorageFailure("create room", err)
	}
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	fields, err := s.client.HGetAll(ctx, roomKey(id)).Result()
	if err != nil {
		return nil, model.StorageFailure("get room", err)
	}
	if len(fields) == 0 {
		return nil, model.ErrRoomNotFound
	}
	return parseRoom(fields)
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	id, err := s.client.Get(ctx, roomCodeKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, model.StorageFailure("get room by code", err)
	}
	return s.GetRoom(ctx, model.RoomID(id))
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	exists, err := s.client.Exists(ctx, roomCodeKey(code)).Result()
	if err != nil {
		return false, model.StorageFailure("room code exists", err)
	}
	return exists > 0, nil
}

func (s *Storage) UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) error {
	result, err := s.runRoomUpdate(ctx, id, "", "", update)
	if err != nil {
		return model.StorageFailure("update room", err)
	}
	if result == -1 {
		return model.ErrRoomNotFound
	}
	return nil
}

func (s *Storage) TransitionRoom(ctx context.Context, id model.RoomID, from model.Phase, fromRound int, update model.RoomUpdate) (bool, error) {
	result, err := s.runRoomUpdate(ctx, id, string(from), strconv.Itoa(fromRound), update)
	if err != nil {
		return false, model.StorageFailure("transition room", err)
	}
	switch result {
	case -1:
		return false, model.ErrRoomNotFound
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

// runRoomUpdate writes update through updateRoomScript. Empty phase and
// round skip the corresponding check.
func (s *Storage) runRoomUpdate(ctx context.Context, id model.RoomID, phase, round string, update model.RoomUpdate) (int, error) {
	args := []any{s.ttlSeconds(), playerKey(""), roomCodeKey(""), phase, round,
		"updated_at", formatTime(time.Now()),
	}
	if update.Phase != nil {
		args = append(args, "phase", string(*update.Phase))
	}
	if update.CurrentRound != nil {
		args = append(args, "current_round", *update.CurrentRound)
	}
	if update.Items != nil {
		items, err := json.Marshal(update.Items)
		if err != nil {
			return 0, err
		}
		args = append(args, "items", string(items))
	}

	keys := []string{roomKey(id), roomPlayersKey(id)}
	return updateRoomScript.Run(ctx, s.client, keys, args...).Int()
}

func (s *Storage) ttlSeconds() int64 {
	return int64(s.cfg.RoomTTL / time.Second)
}

func (s *Storage) ClaimResolution(ctx context.Context, id model.RoomID, round int) (bool, error) {
	result, err := claimScript.Run(ctx, s.client, []string{roomKey(id)}, round).Int()
	if err != nil {
		return false, model.StorageFailure("claim resolution", err)
	}
	switch result {
	case -1:
		return false, model.ErrRoomNotFound
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

// Player operations

func playerFields(player *model.Player) []any {
	return []any{
		"id", string(player.ID),
		"room_id", string(player.RoomID),
		"name", player.DisplayName,
		"capital", player.Capital,
		"eliminated", formatBool(player.Eliminated),
		"is_ai", formatBool(player.IsAI),
		"bot_strategy", player.BotStrategy,
		"joined_at", formatTime(player.JoinedAt),
	}
}

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	key := playerKey(player.ID)
	listKey := roomPlayersKey(player.RoomID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, playerFields(player)...)
	pipe.Expire(ctx, key, s.cfg.RoomTTL)
	pipe.RPush(ctx, listKey, string(player.ID))
	pipe.Expire(ctx, listKey, s.cfg.RoomTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.StorageFailure("create player", err)
	}
	return nil
}

func (s *Storage) JoinRoom(ctx context.Context, player *model.Player, maxPlayers int) error {
	keys := []string{roomKey(player.RoomID), roomPlayersKey(player.RoomID), playerKey(player.ID)}
	args := append([]any{s.ttlSeconds(), maxPlayers, string(player.ID), string(model.PhaseWaiting)},
		playerFields(player)...,
	)
	result, err := joinRoomScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return model.StorageFailure("join room", err)
	}
	switch result {
	case -1:
		return model.ErrRoomNotFound
	case -2:
		return model.ErrGameAlreadyStarted
	case -3:
		return model.ErrRoomFull
	default:
		return nil
	}
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	fields, err := s.client.HGetAll(ctx, playerKey(id)).Result()
	if err != nil {
		return nil, model.StorageFailure("get player", err)
	}
	if len(fields) == 0 {
		return nil, model.ErrPlayerNotFound
	}
	return parsePlayer(fields)
}

func (s *Storage) ListPlayers(ctx context.Context, roomID model.RoomID) ([]*model.Player, error) {
	ids, err := s.client.LRange(ctx, roomPlayersKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, model.StorageFailure("list players", err)
	}
	if len(ids) == 0 {
		return []*model.Player{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, playerKey(model.PlayerID(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, model.StorageFailure("list players", err)
	}

	players := make([]*model.Player, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue // Player may have expired
		}
		player, err := parsePlayer(fields)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, id model.PlayerID, update model.PlayerUpdate) error {
	var args []any
	if update.Capital != nil {
		args = append(args, "capital", *update.Capital)
	}
	// Elimination is one-way: only a true value is ever written
	if update.Eliminated != nil && *update.Eliminated {
		args = append(args, "eliminated", formatBool(true))
	}

	exists, err := updatePlayerScript.Run(ctx, s.client, []string{playerKey(id)}, args...).Int()
	if err != nil {
		return model.StorageFailure("update player", err)
	}
	if exists == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

// Bid operations

func (s *Storage) InsertBid(ctx context.Context, bid *model.Bid) error {
	data, err := json.Marshal(bid)
	if err != nil {
		return err
	}

	keys := []string{bidsKey(bid.RoomID, bid.Round), bidOrderKey(bid.RoomID, bid.Round)}
	inserted, err := insertBidScript.Run(ctx, s.client, keys, string(bid.PlayerID), string(data), s.ttlSeconds()).Int()
	if err != nil {
		return model.StorageFailure("insert bid", err)
	}
	if inserted == 0 {
		return model.ErrDuplicateBid
	}
	return nil
}

func (s *Storage) ListBids(ctx context.Context, roomID model.RoomID, round int) ([]*model.Bid, error) {
	order, err := s.client.LRange(ctx, bidOrderKey(roomID, round), 0, -1).Result()
	if err != nil {
		return nil, model.StorageFailure("list bids", err)
	}
	if len(order) == 0 {
		return []*model.Bid{}, nil
	}

	values, err := s.client.HMGet(ctx, bidsKey(roomID, round), order...).Result()
	if err != nil {
		return nil, model.StorageFailure("list bids", err)
	}

	bids := make([]*model.Bid, 0, len(values))
	for _, val := range values {
		raw, ok := val.(string)
		if !ok {
			continue
		}
		var bid model.Bid
		if err := json.Unmarshal([]byte(raw), &bid); err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}
	return bids, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, ttl).Err(); err != nil {
		return model.StorageFailure("save session", err)
	}
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id string) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, model.StorageFailure("get session", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return model.StorageFailure("delete session", err)
	}
	return nil
}

// Field codecs

func parseRoom(fields map[string]string) (*model.Room, error) {
	room := &model.Room{
		ID:     model.RoomID(fields["id"]),
		Code:   model.RoomCode(fields["code"]),
		Phase:  model.Phase(fields["phase"]),
		HostID: model.PlayerID(fields["host_id"]),
	}

	var err error
	if room.CurrentRound, err = strconv.Atoi(fields["current_round"]); err != nil {
		return nil, err
	}
	if room.MaxRounds, err = strconv.Atoi(fields["max_rounds"]); err != nil {
		return nil, err
	}
	if room.LastResolvedRound, err = strconv.Atoi(fields["last_resolved_round"]); err != nil {
		return nil, err
	}
	if raw := fields["items"]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &room.Items); err != nil {
			return nil, err
		}
	}
	room.CreatedAt = parseTime(fields["created_at"])
	room.UpdatedAt = parseTime(fields["updated_at"])
	return room, nil
}

func parsePlayer(fields map[string]string) (*model.Player, error) {
	capital, err := strconv.ParseInt(fields["capital"], 10, 64)
	if err != nil {
		return nil, err
	}
	return &model.Player{
		ID:          model.PlayerID(fields["id"]),
		RoomID:      model.RoomID(fields["room_id"]),
		DisplayName: fields["name"],
		Capital:     capital,
		Eliminated:  fields["eliminated"] == "1",
		IsAI:        fields["is_ai"] == "1",
		BotStrategy: fields["bot_strategy"],
		JoinedAt:    parseTime(fields["joined_at"]),
	}, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
