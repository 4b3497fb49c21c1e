package room

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/mcoot/bidwars/internal/dependencies/clock"
	"github.com/mcoot/bidwars/internal/dependencies/random"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/auth"
	"github.com/mcoot/bidwars/internal/storage"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 6
	// CodeAlphabet is the characters used in room codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// maxCodeAttempts bounds the search for an unused code
	maxCodeAttempts = 20
)

var (
	namePattern = regexp.MustCompile(`^[a-zA-Z0-9_ -]{1,20}$`)

	errCodeSpaceExhausted = errors.New("no unused room code found")
)

// Config holds room rules
type Config struct {
	StartingCapital  int64
	MaxPlayers       int
	DefaultMaxRounds int
}

// DefaultConfig returns the standard room rules
func DefaultConfig() Config {
	return Config{
		StartingCapital:  1000,
		MaxPlayers:       8,
		DefaultMaxRounds: 10,
	}
}

// Membership is a player's seat in a room together with their credential
type Membership struct {
	Room   *model.Room
	Player *model.Player
	Token  *auth.Token
}

// Controller manages room creation and membership
type Controller struct {
	storage storage.Storage
	auth    *auth.Service
	events  storage.EventPublisher
	clock   clock.Clock
	random  random.Random
	cfg     Config
	logger  *slog.Logger
}

// NewController creates a new room Controller. events may be nil.
func NewController(
	store storage.Storage,
	authService *auth.Service,
	events storage.EventPublisher,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage: store,
		auth:    authService,
		events:  events,
		clock:   clk,
		random:  rnd,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "room-controller")),
	}
}

// NormalizeName trims a display name and checks it is 1-20 letters, digits,
// spaces, underscores or hyphens
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !namePattern.MatchString(name) {
		return "", model.ErrInvalidPlayerName
	}
	return name, nil
}

// Create opens a new room hosted by a new player called hostName. A
// maxRounds of zero selects the default.
func (c *Controller) Create(ctx context.Context, hostName string, maxRounds int) (*Membership, error) {
	name, err := NormalizeName(hostName)
	if err != nil {
		return nil, err
	}
	if maxRounds == 0 {
		maxRounds = c.cfg.DefaultMaxRounds
	}
	if maxRounds < 1 || maxRounds > len(model.Catalog()) {
		return nil, model.ErrInvalidMaxRounds
	}

	code, err := c.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	room := &model.Room{
		ID:        model.RoomID(c.random.NewID()),
		Code:      code,
		Phase:     model.PhaseWaiting,
		MaxRounds: maxRounds,
		CreatedAt: now,
		UpdatedAt: now,
	}
	host := c.newPlayer(room.ID, name, now)
	room.HostID = host.ID

	if err := c.storage.CreateRoom(ctx, room); err != nil {
		c.logger.Error("failed to save room",
			slog.String("room_code", string(code)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if err := c.storage.CreatePlayer(ctx, host); err != nil {
		return nil, err
	}

	token, err := c.auth.Issue(ctx, host)
	if err != nil {
		return nil, err
	}

	c.logger.Info("room created",
		slog.String("room_id", string(room.ID)),
		slog.String("room_code", string(code)),
		slog.Int("max_rounds", maxRounds),
	)

	return &Membership{Room: room, Player: host, Token: token}, nil
}

// Join seats a new player called name in the room with the given code
func (c *Controller) Join(ctx context.Context, code model.RoomCode, name string) (*Membership, error) {
	room, err := c.storage.GetRoomByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}

	player, err := c.AddPlayer(ctx, room, name, "")
	if err != nil {
		return nil, err
	}

	token, err := c.auth.Issue(ctx, player)
	if err != nil {
		return nil, err
	}

	return &Membership{Room: room, Player: player, Token: token}, nil
}

// AddPlayer seats a player in a waiting room. A non-empty botStrategy makes
// the player an AI opponent.
func (c *Controller) AddPlayer(ctx context.Context, room *model.Room, name string, botStrategy string) (*model.Player, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if room.Phase != model.PhaseWaiting {
		return nil, model.ErrGameAlreadyStarted
	}

	player := c.newPlayer(room.ID, name, c.clock.Now())
	if botStrategy != "" {
		player.IsAI = true
		player.BotStrategy = botStrategy
	}
	// The store rechecks phase and capacity atomically with the insert
	if err := c.storage.JoinRoom(ctx, player, c.cfg.MaxPlayers); err != nil {
		return nil, err
	}

	c.logger.Info("player joined room",
		slog.String("room_id", string(room.ID)),
		slog.String("player_id", string(player.ID)),
		slog.Bool("is_ai", player.IsAI),
	)
	c.publish(ctx, &model.Event{
		Type:      model.EventPlayerJoined,
		Timestamp: player.JoinedAt,
		RoomID:    room.ID,
		Payload: model.PlayerJoinedPayload{
			PlayerID:    player.ID,
			DisplayName: player.DisplayName,
			IsAI:        player.IsAI,
		},
	})

	return player, nil
}

// Get retrieves a room by ID
func (c *Controller) Get(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return c.storage.GetRoom(ctx, id)
}

// GetByCode retrieves a room by its join code
func (c *Controller) GetByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return c.storage.GetRoomByCode(ctx, normalizeCode(code))
}

// Players returns the room's players in join order
func (c *Controller) Players(ctx context.Context, id model.RoomID) ([]*model.Player, error) {
	return c.storage.ListPlayers(ctx, id)
}

func (c *Controller) generateCode(ctx context.Context) (model.RoomCode, error) {
	for range maxCodeAttempts {
		code := model.RoomCode(c.random.String(CodeLength, CodeAlphabet))
		exists, err := c.storage.RoomCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", model.StorageFailure("generate room code", errCodeSpaceExhausted)
}

func (c *Controller) newPlayer(roomID model.RoomID, name string, now time.Time) *model.Player {
	return &model.Player{
		ID:          model.PlayerID(c.random.NewID()),
		RoomID:      roomID,
		DisplayName: name,
		Capital:     c.cfg.StartingCapital,
		JoinedAt:    now,
	}
}

func (c *Controller) publish(ctx context.Context, event *model.Event) {
	if c.events != nil {
		c.events.PublishEvent(ctx, event)
	}
}

func normalizeCode(code model.RoomCode) model.RoomCode {
	return model.RoomCode(strings.ToUpper(strings.TrimSpace(string(code))))
}
