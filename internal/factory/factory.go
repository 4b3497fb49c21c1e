package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/bidwars/internal/config"
	"github.com/mcoot/bidwars/internal/dependencies/clock"
	"github.com/mcoot/bidwars/internal/dependencies/random"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/auth"
	"github.com/mcoot/bidwars/internal/services/bot"
	"github.com/mcoot/bidwars/internal/services/game"
	"github.com/mcoot/bidwars/internal/services/resolver"
	"github.com/mcoot/bidwars/internal/services/room"
	"github.com/mcoot/bidwars/internal/services/trigger"
	"github.com/mcoot/bidwars/internal/storage"
	"github.com/mcoot/bidwars/internal/storage/memory"
	"github.com/mcoot/bidwars/internal/storage/postgres"
	redisstorage "github.com/mcoot/bidwars/internal/storage/redis"
	"github.com/mcoot/bidwars/internal/storage/sqlite"
	"github.com/mcoot/bidwars/internal/stream"
)

// generatedKeyLength is the length of the signing key used when none is
// configured
const generatedKeyLength = 48

const keyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService    *auth.Service
	RoomController *room.Controller
	Resolver       *resolver.Resolver
	Trigger        *trigger.Trigger
	GameController *game.Controller
	BotService     *bot.Service

	// Streaming
	HubManager  *stream.HubManager
	Broadcaster *stream.Broadcaster

	// roundFeed is set when round results travel through a shared channel
	// that this instance must relay to its own subscribers
	roundFeed roundFeed
	closer    io.Closer
	logger    *slog.Logger
}

// Settings holds the per-service configuration derived from config.Config
type Settings struct {
	Auth auth.Config
	Room room.Config
	Game game.Config
}

// DefaultSettings returns the default settings for every service
func DefaultSettings() Settings {
	return Settings{
		Auth: auth.DefaultConfig(),
		Room: room.DefaultConfig(),
		Game: game.DefaultConfig(),
	}
}

// SettingsFromConfig maps the server configuration onto service settings
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	s.Auth.SigningKey = []byte(cfg.Auth.SigningKey)
	if cfg.Auth.Issuer != "" {
		s.Auth.Issuer = cfg.Auth.Issuer
	}
	if cfg.Auth.SessionDuration > 0 {
		s.Auth.SessionDuration = cfg.Auth.SessionDuration
	}
	s.Room.StartingCapital = cfg.Game.StartingCapital
	s.Room.MaxPlayers = cfg.Game.MaxPlayers
	s.Room.DefaultMaxRounds = cfg.Game.DefaultMaxRounds
	s.Game.StartingCapital = cfg.Game.StartingCapital
	s.Game.MinPlayers = cfg.Game.MinPlayers
	return s
}

// roundFeed is a shared round result channel, implemented by the redis
// backend
type roundFeed interface {
	storage.Publisher
	SubscribeRoundResults(ctx context.Context, fn func(model.RoomID, *model.RoundResult)) error
}

// New creates a new application with all dependencies wired, opening the
// storage backend cfg selects
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, closer, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	clk := clock.New()
	rnd := random.New()

	settings := SettingsFromConfig(cfg)
	if len(settings.Auth.SigningKey) == 0 {
		logger.Warn("no auth.signing_key configured, generating one; sessions will not survive a restart")
		settings.Auth.SigningKey = []byte(rnd.String(generatedKeyLength, keyAlphabet))
	}

	var publisher storage.Publisher
	feed, shared := store.(roundFeed)
	if shared {
		publisher = feed
	}

	app := newWithDependencies(store, publisher, clk, rnd, settings, logger)
	app.closer = closer
	if shared {
		app.roundFeed = feed
	}
	return app, nil
}

// openStorage opens the configured backend. The returned closer is nil for
// the memory store.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, io.Closer, error) {
	switch cfg.Storage.Type {
	case config.StorageMemory, "":
		return memory.New(), nil, nil

	case config.StorageRedis:
		store, err := redisstorage.New(redisstorage.Config{
			URL:          cfg.Redis.URL,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			RoomTTL:      cfg.Redis.RoomTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, store, nil

	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			PoolSize:        cfg.Database.PoolSize,
			ConnectTimeout:  cfg.Database.ConnectTimeout,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store := postgres.New(pool)
		return store, store, nil

	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("invalid storage type %q", cfg.Storage.Type)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for
// testing). A nil publisher sends round results straight to the local
// broadcaster.
func newWithDependencies(store storage.Storage, publisher storage.Publisher, clk clock.Clock, rnd random.Random, settings Settings, logger *slog.Logger) *App {
	hubManager := stream.NewHubManager(logger)
	broadcaster := stream.NewBroadcaster(hubManager, clk, logger)
	if publisher == nil {
		publisher = broadcaster
	}

	authService := auth.New(store, clk, rnd, settings.Auth, logger)
	roomController := room.NewController(store, authService, broadcaster, clk, rnd, settings.Room, logger)
	res := resolver.New(store, publisher, logger)
	trig := trigger.New(store, res, logger)
	gameController := game.NewController(store, trig, broadcaster, clk, rnd, settings.Game, logger)
	botService := bot.NewService(roomController, gameController, bot.DefaultStrategies(rnd), rnd, logger)
	gameController.SetRoundListener(botService)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		AuthService:    authService,
		RoomController: roomController,
		Resolver:       res,
		Trigger:        trig,
		GameController: gameController,
		BotService:     botService,
		HubManager:     hubManager,
		Broadcaster:    broadcaster,
		logger:         logger.With(slog.String("component", "app")),
	}
}

// RelayRoundResults forwards round results from the shared feed to local
// subscribers until ctx is cancelled. It returns immediately when results are
// delivered locally.
func (a *App) RelayRoundResults(ctx context.Context) error {
	if a.roundFeed == nil {
		return nil
	}
	a.logger.Info("relaying round results from shared feed")
	return a.roundFeed.SubscribeRoundResults(ctx, func(roomID model.RoomID, result *model.RoundResult) {
		if err := a.Broadcaster.PublishRoundResult(ctx, roomID, result); err != nil {
			a.logger.Warn("failed to relay round result",
				slog.String("room_id", string(roomID)),
				slog.String("error", err.Error()),
			)
		}
	})
}

// Close releases the storage backend and disconnects stream clients
func (a *App) Close() error {
	a.HubManager.Close()
	if a.closer == nil {
		return nil
	}
	if err := a.closer.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
