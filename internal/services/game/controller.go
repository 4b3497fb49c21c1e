package game

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/mcoot/bidwars/internal/dependencies/clock"
	"github.com/mcoot/bidwars/internal/dependencies/random"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/bidding"
	"github.com/mcoot/bidwars/internal/services/resolver"
	"github.com/mcoot/bidwars/internal/services/trigger"
	"github.com/mcoot/bidwars/internal/storage"
)

// Config holds game rules
type Config struct {
	StartingCapital int64
	MinPlayers      int
	// Catalog is the pool items are drawn from; empty means model.Catalog()
	Catalog []model.Item
}

// DefaultConfig returns the standard game rules
func DefaultConfig() Config {
	return Config{
		StartingCapital: 1000,
		MinPlayers:      2,
	}
}

// RoundListener is told whenever a round opens for bids
type RoundListener interface {
	RoundOpened(ctx context.Context, room *model.Room)
}

// Receipt describes an accepted bid. Resolved is true only when this
// submission resolved the round.
type Receipt struct {
	Round     int
	Amount    int64
	AllBidsIn bool
	Resolved  bool
	Result    *model.RoundResult
}

// Controller manages the game state machine and bid flow
type Controller struct {
	storage  storage.Storage
	trigger  *trigger.Trigger
	events   storage.EventPublisher
	listener RoundListener
	clock    clock.Clock
	random   random.Random
	cfg      Config
	logger   *slog.Logger
}

// NewController creates a new game Controller. events may be nil.
func NewController(
	store storage.Storage,
	trig *trigger.Trigger,
	events storage.EventPublisher,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage: store,
		trigger: trig,
		events:  events,
		clock:   clk,
		random:  rnd,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "game-controller")),
	}
}

// SetRoundListener registers l to be called when rounds open. It must be
// called before the controller serves requests.
func (c *Controller) SetRoundListener(l RoundListener) {
	c.listener = l
}

// Start begins the game: the host moves a waiting room with enough players
// into bidding on round 1 with a freshly drawn set of items.
func (c *Controller) Start(ctx context.Context, roomID model.RoomID, requester model.PlayerID) (*model.Room, error) {
	room, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(requester) {
		return nil, model.ErrNotHost
	}
	if room.Phase != model.PhaseWaiting {
		return nil, model.ErrGameAlreadyStarted
	}

	players, err := c.storage.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(players) < c.cfg.MinPlayers {
		return nil, model.ErrInsufficientPlayers
	}

	catalog := c.cfg.Catalog
	if len(catalog) == 0 {
		catalog = model.Catalog()
	}
	if room.MaxRounds > len(catalog) {
		return nil, model.ErrInvalidMaxRounds
	}
	items := random.Shuffle(c.random, catalog)[:room.MaxRounds]

	phase, round := model.PhaseBidding, 1
	started, err := storage.Transition(ctx, c.storage, room, model.RoomUpdate{
		Phase:        &phase,
		CurrentRound: &round,
		Items:        items,
	})
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, model.ErrGameAlreadyStarted
	}
	room.Phase = phase
	room.CurrentRound = round
	room.Items = items

	c.logger.Info("game started",
		slog.String("room_id", string(roomID)),
		slog.Int("player_count", len(players)),
		slog.Int("max_rounds", room.MaxRounds),
	)
	c.publishRound(ctx, room, model.EventGameStarted)
	c.openRound(ctx, room)

	return room, nil
}

// SubmitBid validates and records a bid, then resolves the round if it was
// the last one outstanding. A round of zero means the current round.
func (c *Controller) SubmitBid(ctx context.Context, roomID model.RoomID, playerID model.PlayerID, amount float64, round int) (*Receipt, error) {
	room, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	player, err := c.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	value, err := bidding.Validate(room, player, bidding.Request{Amount: amount, Round: round})
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	if err := c.storage.InsertBid(ctx, &model.Bid{
		RoomID:    roomID,
		PlayerID:  playerID,
		Round:     room.CurrentRound,
		Amount:    value,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	c.logger.Info("bid placed",
		slog.String("room_id", string(roomID)),
		slog.String("player_id", string(playerID)),
		slog.Int("round", room.CurrentRound),
	)
	c.publish(ctx, &model.Event{
		Type:      model.EventBidPlaced,
		Timestamp: now,
		RoomID:    roomID,
		Payload:   model.BidPlacedPayload{PlayerID: playerID, Round: room.CurrentRound},
	})

	outcome, err := c.trigger.AfterBid(ctx, roomID, room.CurrentRound)
	if err != nil {
		return nil, err
	}

	if outcome.Resolved && outcome.Result != nil && outcome.Result.GameOver {
		c.announceGameOver(ctx, roomID, room.CurrentRound)
	}

	return &Receipt{
		Round:     room.CurrentRound,
		Amount:    value,
		AllBidsIn: outcome.AllBidsIn,
		Resolved:  outcome.Resolved,
		Result:    outcome.Result,
	}, nil
}

// AdvanceRound moves a room out of the results phase, either into the next
// round or to game over. From bidding it only ends the game, and only when
// no more than one player remains.
func (c *Controller) AdvanceRound(ctx context.Context, roomID model.RoomID, requester model.PlayerID) (*model.Room, error) {
	room, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(requester) {
		return nil, model.ErrNotHost
	}

	players, err := c.storage.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	active := model.CountActive(players)

	switch room.Phase {
	case model.PhaseResults:
		next := room.CurrentRound + 1
		if active <= 1 || next > room.MaxRounds {
			return c.finish(ctx, room)
		}

		phase := model.PhaseBidding
		advanced, err := storage.Transition(ctx, c.storage, room, model.RoomUpdate{
			Phase:        &phase,
			CurrentRound: &next,
		})
		if err != nil {
			return nil, err
		}
		// Another advance already moved the room on
		if !advanced {
			return nil, model.ErrInvalidPhase
		}
		room.Phase = phase
		room.CurrentRound = next

		c.logger.Info("round started",
			slog.String("room_id", string(roomID)),
			slog.Int("round", next),
		)
		c.publishRound(ctx, room, model.EventRoundStarted)
		c.openRound(ctx, room)
		return room, nil

	case model.PhaseBidding:
		if active > 1 {
			return nil, model.ErrInvalidPhase
		}
		// Take the round marker so a resolver cannot run alongside
		claimed, err := c.storage.ClaimResolution(ctx, roomID, room.CurrentRound)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, model.ErrRoundInProgress
		}
		return c.finish(ctx, room)

	case model.PhaseGameOver:
		return nil, model.ErrGameOver

	default:
		return nil, model.ErrInvalidPhase
	}
}

// History rebuilds the result of every resolved round from stored bids by
// replaying the ledger from starting capital.
func (c *Controller) History(ctx context.Context, roomID model.RoomID) ([]*model.RoundResult, error) {
	room, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	players, err := c.storage.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	replay := make([]*model.Player, len(players))
	for i, p := range players {
		replay[i] = &model.Player{
			ID:          p.ID,
			RoomID:      p.RoomID,
			DisplayName: p.DisplayName,
			Capital:     c.cfg.StartingCapital,
			IsAI:        p.IsAI,
		}
	}

	results := []*model.RoundResult{}
	for round := 1; round <= room.CurrentRound; round++ {
		if round == room.CurrentRound && room.Phase == model.PhaseBidding {
			break
		}
		bids, err := c.storage.ListBids(ctx, roomID, round)
		if err != nil {
			return nil, err
		}
		// Rounds resolve once every active player has bid
		if len(bids) == 0 || len(bids) < model.CountActive(replay) {
			break
		}
		result, err := resolver.Tabulate(room, round, bids, replay)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

// Leaderboard returns the room's players with active players first, each
// group ordered by capital descending
func (c *Controller) Leaderboard(ctx context.Context, roomID model.RoomID) ([]*model.Player, error) {
	players, err := c.storage.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return rank(players), nil
}

func rank(players []*model.Player) []*model.Player {
	ranked := slices.Clone(players)
	slices.SortStableFunc(ranked, func(a, b *model.Player) int {
		if a.Eliminated != b.Eliminated {
			if a.Eliminated {
				return 1
			}
			return -1
		}
		return cmp.Compare(b.Capital, a.Capital)
	})
	return ranked
}

func (c *Controller) finish(ctx context.Context, room *model.Room) (*model.Room, error) {
	finished, err := storage.Transition(ctx, c.storage, room, model.PhaseUpdate(model.PhaseGameOver))
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, model.ErrInvalidPhase
	}
	room.Phase = model.PhaseGameOver

	c.logger.Info("game over",
		slog.String("room_id", string(room.ID)),
		slog.Int("round", room.CurrentRound),
	)
	c.announceGameOver(ctx, room.ID, room.CurrentRound)
	return room, nil
}

func (c *Controller) announceGameOver(ctx context.Context, roomID model.RoomID, round int) {
	if c.events == nil {
		return
	}
	players, err := c.storage.ListPlayers(ctx, roomID)
	if err != nil {
		c.logger.Warn("failed to load standings for game over",
			slog.String("room_id", string(roomID)),
			slog.String("error", err.Error()),
		)
		return
	}
	standing := make([]model.PlayerID, 0, len(players))
	for _, p := range rank(players) {
		standing = append(standing, p.ID)
	}
	c.publish(ctx, &model.Event{
		Type:      model.EventGameOver,
		Timestamp: c.clock.Now(),
		RoomID:    roomID,
		Payload:   model.GameOverPayload{Round: round, Standing: standing},
	})
}

func (c *Controller) publishRound(ctx context.Context, room *model.Room, eventType model.EventType) {
	item, _ := room.CurrentItem()
	c.publish(ctx, &model.Event{
		Type:      eventType,
		Timestamp: c.clock.Now(),
		RoomID:    room.ID,
		Payload: model.RoundStartedPayload{
			Round:     room.CurrentRound,
			MaxRounds: room.MaxRounds,
			Item:      item,
		},
	})
}

func (c *Controller) openRound(ctx context.Context, room *model.Room) {
	if c.listener != nil {
		c.listener.RoundOpened(ctx, room)
	}
}

func (c *Controller) publish(ctx context.Context, event *model.Event) {
	if c.events != nil {
		c.events.PublishEvent(ctx, event)
	}
}
