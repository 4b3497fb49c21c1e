package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/bidwars/internal/dependencies/random"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/game"
	"github.com/mcoot/bidwars/internal/services/room"
)

// Names is the pool of display names given to AI players
var Names = []string{
	"NetRunner_X",
	"CyberVoid",
	"Glitch_exe",
	"NeonWraith",
	"DataPhantom",
	"PixelReaper",
	"CircuitBreaker",
	"ShadowByte",
	"ChromeJack",
	"BinaryGhost",
}

// BotAction records one bid an AI player placed
type BotAction struct {
	PlayerID model.PlayerID
	Round    int
	Receipt  *game.Receipt
}

// Service manages AI players
type Service struct {
	rooms      *room.Controller
	games      *game.Controller
	strategies map[string]Strategy
	random     random.Random
	logger     *slog.Logger
}

var _ game.RoundListener = (*Service)(nil)

// NewService creates a new bot Service
func NewService(
	rooms *room.Controller,
	games *game.Controller,
	strategies map[string]Strategy,
	rnd random.Random,
	logger *slog.Logger,
) *Service {
	return &Service{
		rooms:      rooms,
		games:      games,
		strategies: strategies,
		random:     rnd,
		logger:     logger.With(slog.String("component", "bot-service")),
	}
}

// AddBot seats an AI player in a waiting room. Only the host can add bots.
// An empty strategy selects StrategyRandom.
func (s *Service) AddBot(ctx context.Context, roomID model.RoomID, requester model.PlayerID, strategy string) (*model.Player, error) {
	if strategy == "" {
		strategy = StrategyRandom
	}
	if _, ok := s.strategies[strategy]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownBotStrategy, strategy)
	}

	rm, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !rm.IsHost(requester) {
		return nil, model.ErrNotHost
	}

	players, err := s.rooms.Players(ctx, roomID)
	if err != nil {
		return nil, err
	}

	bot, err := s.rooms.AddPlayer(ctx, rm, s.pickName(players), strategy)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bot added to room",
		slog.String("room_id", string(roomID)),
		slog.String("bot_id", string(bot.ID)),
		slog.String("bot_name", bot.DisplayName),
	)
	return bot, nil
}

// RoundOpened places bids for every active AI player in the room
func (s *Service) RoundOpened(ctx context.Context, rm *model.Room) {
	if _, err := s.PlaceBids(ctx, rm); err != nil {
		s.logger.Error("bot bidding failed",
			slog.String("room_id", string(rm.ID)),
			slog.Int("round", rm.CurrentRound),
			slog.String("error", err.Error()),
		)
	}
}

// PlaceBids submits a bid for each active AI player that has not bid in the
// room's current round, through the same path as human bids
func (s *Service) PlaceBids(ctx context.Context, rm *model.Room) ([]BotAction, error) {
	item, ok := rm.CurrentItem()
	if !ok || rm.Phase != model.PhaseBidding {
		return nil, nil
	}

	players, err := s.rooms.Players(ctx, rm.ID)
	if err != nil {
		return nil, err
	}

	var actions []BotAction
	for _, p := range players {
		if !p.IsAI || !p.Active() {
			continue
		}

		amount := s.strategyForPlayer(p).ChooseBid(p, item, rm.CurrentRound)
		receipt, err := s.games.SubmitBid(ctx, rm.ID, p.ID, amount, rm.CurrentRound)
		if errors.Is(err, model.ErrDuplicateBid) {
			continue
		}
		if err != nil {
			return actions, err
		}

		actions = append(actions, BotAction{PlayerID: p.ID, Round: rm.CurrentRound, Receipt: receipt})
		if receipt.Resolved {
			break
		}
	}

	return actions, nil
}

// pickName returns an unused AI name, falling back to a numbered one
func (s *Service) pickName(players []*model.Player) string {
	taken := make(map[string]bool, len(players))
	for _, p := range players {
		taken[p.DisplayName] = true
	}
	for _, name := range random.Shuffle(s.random, Names) {
		if !taken[name] {
			return name
		}
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("Bot %d", i)
		if !taken[name] {
			return name
		}
	}
}

// strategyForPlayer returns the bot's strategy, falling back to the random
// strategy if the stored one is no longer registered
func (s *Service) strategyForPlayer(player *model.Player) Strategy {
	if st, ok := s.strategies[player.BotStrategy]; ok {
		return st
	}
	if st, ok := s.strategies[StrategyRandom]; ok {
		return st
	}
	for _, st := range s.strategies {
		return st
	}
	return nil
}
