// Package trigger decides when a round is complete and makes sure exactly
// one caller resolves it.
package trigger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
)

// RoundResolver settles one round
type RoundResolver interface {
	Resolve(ctx context.Context, roomID model.RoomID, round int) (*model.RoundResult, error)
}

// Outcome reports what happened after a bid was recorded
type Outcome struct {
	// AllBidsIn is true when every active player had bid for the round
	AllBidsIn bool
	// Resolved is true only for the caller that won the claim and ran
	// the resolver
	Resolved bool
	Result   *model.RoundResult
}

// Trigger runs the resolver once per round when the last bid arrives
type Trigger struct {
	storage  storage.Storage
	resolver RoundResolver
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New creates a Trigger
func New(store storage.Storage, resolver RoundResolver, logger *slog.Logger) *Trigger {
	return &Trigger{
		storage:  store,
		resolver: resolver,
		tracer:   otel.Tracer("github.com/mcoot/bidwars/internal/services/trigger"),
		logger:   logger.With(slog.String("component", "trigger")),
	}
}

// AfterBid checks whether round is complete and, if so, tries to claim and
// resolve it. Losing the claim is not an error.
func (t *Trigger) AfterBid(ctx context.Context, roomID model.RoomID, round int) (Outcome, error) {
	players, err := t.storage.ListPlayers(ctx, roomID)
	if err != nil {
		return Outcome{}, err
	}
	bids, err := t.storage.ListBids(ctx, roomID, round)
	if err != nil {
		return Outcome{}, err
	}

	active := model.CountActive(players)
	if len(bids) == 0 || len(bids) < active {
		return Outcome{}, nil
	}

	ctx, span := t.tracer.Start(ctx, "trigger.Claim", trace.WithAttributes(
		attribute.String("room.id", string(roomID)),
		attribute.Int("round", round),
	))
	claimed, err := t.storage.ClaimResolution(ctx, roomID, round)
	span.SetAttributes(attribute.Bool("claimed", claimed))
	span.End()
	if err != nil {
		return Outcome{AllBidsIn: true}, err
	}
	if !claimed {
		t.logger.Debug("resolution claimed by another caller",
			slog.String("room_id", string(roomID)),
			slog.Int("round", round),
		)
		return Outcome{AllBidsIn: true}, nil
	}

	result, err := t.resolver.Resolve(ctx, roomID, round)
	if err != nil {
		// The marker stays claimed; the round needs operator attention
		t.logger.Error("round resolution failed after claim",
			slog.String("room_id", string(roomID)),
			slog.Int("round", round),
			slog.String("error", err.Error()),
		)
		return Outcome{AllBidsIn: true}, err
	}

	return Outcome{AllBidsIn: true, Resolved: true, Result: result}, nil
}
