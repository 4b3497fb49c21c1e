package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/bidwars/internal/dependencies/clock"
	"github.com/mcoot/bidwars/internal/dependencies/random"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
)

// Config holds configuration for the auth service
type Config struct {
	// SigningKey is the HMAC key for session tokens
	SigningKey      []byte
	Issuer          string
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration. The signing key must
// still be provided.
func DefaultConfig() Config {
	return Config{
		Issuer:          "bidwars",
		SessionDuration: 24 * time.Hour,
	}
}

// Token is a signed session credential handed to a client
type Token struct {
	Value   string
	Session *model.Session
}

// claims is the JWT body of a session token
type claims struct {
	jwt.RegisteredClaims
	RoomID string `json:"room"`
}

// Service issues and verifies session tokens. A token is only accepted while
// its session record exists in storage, so sessions can be revoked.
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	random   random.Random
	key      []byte
	issuer   string
	duration time.Duration
	logger   *slog.Logger
}

// New creates a new auth Service
func New(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = defaults.SessionDuration
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	return &Service{
		storage:  store,
		clock:    clk,
		random:   rnd,
		key:      cfg.SigningKey,
		issuer:   cfg.Issuer,
		duration: cfg.SessionDuration,
		logger:   logger.With(slog.String("component", "auth-service")),
	}
}

// Issue creates a session for player and returns its signed token
func (s *Service) Issue(ctx context.Context, player *model.Player) (*Token, error) {
	now := s.clock.Now()
	session := &model.Session{
		ID:        s.random.NewID(),
		PlayerID:  player.ID,
		RoomID:    player.RoomID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.duration),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   string(player.ID),
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		RoomID: string(player.RoomID),
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return nil, err
	}

	if err := s.storage.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	return &Token{Value: signed, Session: session}, nil
}

// Authenticate verifies a token and returns its live session
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, model.ErrSessionNotFound
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// Expiry is checked below against the injected clock
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		s.logger.Debug("rejected session token", slog.String("error", err.Error()))
		return nil, model.ErrSessionNotFound
	}
	if parsed.ID == "" || parsed.ExpiresAt == nil || parsed.Issuer != s.issuer {
		return nil, model.ErrSessionNotFound
	}

	now := s.clock.Now()
	if !parsed.ExpiresAt.Time.After(now) {
		return nil, model.ErrSessionNotFound
	}

	session, err := s.storage.GetSession(ctx, parsed.ID)
	if err != nil {
		return nil, err
	}
	if session.Expired(now) {
		_ = s.storage.DeleteSession(ctx, session.ID)
		return nil, model.ErrSessionNotFound
	}
	if string(session.PlayerID) != parsed.Subject || string(session.RoomID) != parsed.RoomID {
		return nil, model.ErrSessionMismatch
	}

	return session, nil
}

// Authorize authenticates token and requires its session to belong to room
func (s *Service) Authorize(ctx context.Context, token string, roomID model.RoomID) (*model.Session, error) {
	session, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.RoomID != roomID {
		return nil, model.ErrSessionMismatch
	}
	return session, nil
}

// Revoke deletes the session behind token. Unknown tokens are ignored.
func (s *Service) Revoke(ctx context.Context, token string) error {
	session, err := s.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			return nil
		}
		return err
	}
	return s.storage.DeleteSession(ctx, session.ID)
}
