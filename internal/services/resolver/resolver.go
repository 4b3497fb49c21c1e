// Package resolver applies the outcome of one bidding round to stored
// player and room state.
package resolver

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/ledger"
	"github.com/mcoot/bidwars/internal/storage"
)

// Resolver resolves rounds. Callers must hold the resolution claim for the
// round; the resolver itself takes no locks.
type Resolver struct {
	storage   storage.Storage
	publisher storage.Publisher
	tracer    trace.Tracer
	logger    *slog.Logger
}

// New creates a Resolver. publisher may be nil.
func New(store storage.Storage, publisher storage.Publisher, logger *slog.Logger) *Resolver {
	return &Resolver{
		storage:   store,
		publisher: publisher,
		tracer:    otel.Tracer("github.com/mcoot/bidwars/internal/services/resolver"),
		logger:    logger.With(slog.String("component", "resolver")),
	}
}

// Resolve settles the given round of the room. It returns nil without
// writing anything when the round has no bids. The room must be bidding on
// exactly that round.
func (r *Resolver) Resolve(ctx context.Context, roomID model.RoomID, round int) (result *model.RoundResult, err error) {
	ctx, span := r.tracer.Start(ctx, "resolver.Resolve", trace.WithAttributes(
		attribute.String("room.id", string(roomID)),
		attribute.Int("round", round),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	room, err := r.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Phase != model.PhaseBidding || room.CurrentRound != round {
		return nil, model.ErrRoundMismatch
	}
	if _, ok := room.ItemForRound(round); !ok {
		return nil, model.ErrRoundMismatch
	}

	bids, err := r.storage.ListBids(ctx, roomID, round)
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		r.logger.Warn("resolve called with no bids",
			slog.String("room_id", string(roomID)),
			slog.Int("round", round),
		)
		return nil, nil
	}

	players, err := r.storage.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	result, err = Tabulate(room, round, bids, players)
	if err != nil {
		return nil, err
	}

	byID := make(map[model.PlayerID]*model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	for _, entry := range result.Bids {
		p := byID[entry.PlayerID]
		update := model.PlayerUpdate{Capital: &p.Capital}
		if p.Eliminated {
			update.Eliminated = &p.Eliminated
		}
		if err := r.storage.UpdatePlayer(ctx, p.ID, update); err != nil {
			r.logger.Error("failed to apply round to player",
				slog.String("room_id", string(roomID)),
				slog.Int("round", round),
				slog.String("player_id", string(p.ID)),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
	}

	next := model.PhaseResults
	if result.GameOver {
		next = model.PhaseGameOver
	}
	moved, err := storage.Transition(ctx, r.storage, room, model.PhaseUpdate(next))
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, model.ErrRoundMismatch
	}

	span.SetAttributes(
		attribute.String("winner.id", string(result.WinnerID)),
		attribute.Bool("game_over", result.GameOver),
	)
	r.logger.Info("round resolved",
		slog.String("room_id", string(roomID)),
		slog.Int("round", round),
		slog.String("winner_id", string(result.WinnerID)),
		slog.Int64("winner_bid", result.WinnerBid),
		slog.Int("eliminated", len(result.Eliminated)),
		slog.Bool("game_over", result.GameOver),
	)

	r.publish(ctx, roomID, result)
	return result, nil
}

// publish is best effort; stored state stays authoritative
func (r *Resolver) publish(ctx context.Context, roomID model.RoomID, result *model.RoundResult) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishRoundResult(ctx, roomID, result); err != nil {
		r.logger.Warn("failed to publish round result",
			slog.String("room_id", string(roomID)),
			slog.Int("round", result.Round),
			slog.String("error", err.Error()),
		)
	}
}

// Tabulate settles a round's bids against the players without touching
// storage. bids must be in submission order. The capital and elimination
// flags of players are updated in place.
func Tabulate(room *model.Room, round int, bids []*model.Bid, players []*model.Player) (*model.RoundResult, error) {
	item, ok := room.ItemForRound(round)
	if !ok {
		return nil, model.ErrRoundMismatch
	}

	byID := make(map[model.PlayerID]*model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	// Highest first; equal amounts keep submission order
	ordered := slices.Clone(bids)
	slices.SortStableFunc(ordered, func(a, b *model.Bid) int {
		return cmp.Compare(b.Amount, a.Amount)
	})

	stakes := make([]ledger.Stake, 0, len(ordered))
	for _, bid := range ordered {
		p, ok := byID[bid.PlayerID]
		if !ok {
			return nil, model.ErrPlayerNotFound
		}
		stakes = append(stakes, ledger.Stake{
			PlayerID:   p.ID,
			Capital:    p.Capital,
			Eliminated: p.Eliminated,
			Amount:     bid.Amount,
		})
	}

	settlement := ledger.Settle(item.Price, stakes)

	result := &model.RoundResult{
		RoomID:     room.ID,
		Round:      round,
		Item:       item,
		Bids:       make([]model.BidEntry, 0, len(stakes)),
		Eliminated: []string{},
	}
	for i, entry := range settlement.Entries {
		p := byID[entry.PlayerID]
		p.Capital = entry.Capital
		p.Eliminated = entry.Eliminated
		if entry.NewlyEliminated {
			result.Eliminated = append(result.Eliminated, p.DisplayName)
		}
		result.Bids = append(result.Bids, model.BidEntry{
			PlayerID:   p.ID,
			PlayerName: p.DisplayName,
			Amount:     stakes[i].Amount,
		})
	}

	if winner, ok := settlement.WinnerEntry(); ok {
		result.WinnerID = winner.PlayerID
		result.WinnerName = byID[winner.PlayerID].DisplayName
		result.WinnerBid = stakes[settlement.Winner].Amount
		result.WinnerGain = winner.Delta
	}

	result.GameOver = IsGameOver(model.CountActive(players), round, room.MaxRounds)
	return result, nil
}

// IsGameOver reports whether a game ends once round has been played:
// at most one active player remains or the last round is done.
func IsGameOver(active, round, maxRounds int) bool {
	return active <= 1 || round >= maxRounds
}
