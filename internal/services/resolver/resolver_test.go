package resolver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/resolver"
	"github.com/mcoot/bidwars/internal/storage/memory"
	"github.com/mcoot/bidwars/internal/storage/mocks"
	"github.com/mcoot/bidwars/internal/testutil"
)

type ResolverSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *memory.Storage
	publisher *mocks.MockPublisher
	resolver  *resolver.Resolver
	ctx       context.Context
	now       time.Time
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = memory.New()
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.resolver = resolver.New(s.store, s.publisher, testutil.NopLogger())
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ResolverSuite) TearDownTest() {
	s.ctrl.Finish()
}

// seed creates a room bidding on round 1 for an item of the given price
func (s *ResolverSuite) seed(price int64, maxRounds int, capitals map[string]int64, order ...string) {
	room := &model.Room{
		ID:           "room-1",
		Code:         "ABCDEF",
		Phase:        model.PhaseBidding,
		HostID:       model.PlayerID(order[0]),
		CurrentRound: 1,
		MaxRounds:    maxRounds,
		Items:        []model.Item{{ID: "x", Name: "Lot", Price: price}, {ID: "y", Name: "Next", Price: price}},
		CreatedAt:    s.now,
		UpdatedAt:    s.now,
	}
	s.Require().NoError(s.store.CreateRoom(s.ctx, room))
	for _, id := range order {
		s.Require().NoError(s.store.CreatePlayer(s.ctx, &model.Player{
			ID:          model.PlayerID(id),
			RoomID:      "room-1",
			DisplayName: "Name " + id,
			Capital:     capitals[id],
			JoinedAt:    s.now,
		}))
	}
}

func (s *ResolverSuite) bid(player string, amount int64) {
	s.Require().NoError(s.store.InsertBid(s.ctx, &model.Bid{
		RoomID: "room-1", PlayerID: model.PlayerID(player), Round: 1, Amount: amount, CreatedAt: s.now,
	}))
}

func (s *ResolverSuite) capital(player string) int64 {
	p, err := s.store.GetPlayer(s.ctx, model.PlayerID(player))
	s.Require().NoError(err)
	return p.Capital
}

func (s *ResolverSuite) phase() model.Phase {
	room, err := s.store.GetRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	return room.Phase
}

func (s *ResolverSuite) TestHighestBidderWinsSpread() {
	s.seed(1000, 5, map[string]int64{"p1": 1000, "p2": 1000, "p3": 1000}, "p1", "p2", "p3")
	s.bid("p1", 500)
	s.bid("p2", 300)
	s.bid("p3", 900)
	s.publisher.EXPECT().PublishRoundResult(gomock.Any(), model.RoomID("room-1"), gomock.Any()).Return(nil)

	result, err := s.resolver.Resolve(s.ctx, "room-1", 1)
	s.Require().NoError(err)
	s.Require().NotNil(result)

	s.Equal(model.PlayerID("p3"), result.WinnerID)
	s.Equal("Name p3", result.WinnerName)
	s.Equal(int64(900), result.WinnerBid)
	s.Equal(int64(100), result.WinnerGain)
	s.Equal([]model.BidEntry{
		{PlayerID: "p3", PlayerName: "Name p3", Amount: 900},
		{PlayerID: "p1", PlayerName: "Name p1", Amount: 500},
		{PlayerID: "p2", PlayerName: "Name p2", Amount: 300},
	}, result.Bids)
	s.Empty(result.Eliminated)
	s.False(result.GameOver)

	s.Equal(int64(1100), s.capital("p3"))
	s.Equal(int64(500), s.capital("p1"))
	s.Equal(int64(700), s.capital("p2"))
	s.Equal(model.PhaseResults, s.phase())
}

func (s *ResolverSuite) TestOverbidWinnerLosesCapital() {
	s.seed(1000, 5, map[string]int64{"p1": 2000, "p2": 1000}, "p1", "p2")
	s.bid("p1", 1500)
	s.bid("p2", 100)
	s.publisher.EXPECT().PublishRoundResult(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	result, err := s.resolver.Resolve(s.ctx, "room-1", 1)
	s.Require().NoError(err)

	s.Equal(model.PlayerID("p1"), result.WinnerID)
	s.Equal(int64(-500), result.WinnerGain)
	s.Equal(int64(1500), s.capital("p1"))
}

func (s *ResolverSuite) TestTieGoesToFirstSubmission() {
	s.seed(1000, 5, map[string]int64{"p1": 1000, "p2": 1000}, "p1", "p2")
	s.bid("p2", 400)
	s.bid("p1", 400)
	s.publisher.EXPECT().PublishRoundResult(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	result, err := s.resolver.Resolve(s.ctx, "room-1", 1)
	s.Require().NoError(err)

	s.Equal(model.PlayerID("p2"), result.WinnerID)
	s.Equal(model.PlayerID("p1"), result.Bids[1].PlayerID)
}

func (s *ResolverSuite) TestEliminationEndsGameWithOneSurvivor() {
	s.seed(100, 5, map[string]int64{"p1": 300, "p2": 1000}, "p1", "p2")
	s.bid("p1", 300)
	s.bid("p2", 350)
	s.publisher.EXPECT().PublishRoundResult(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	result, err := s.resolver.Resolve(s.ctx, "room-1", 1)
	s.Require().NoError(err)

	s.Equal([]string{"Name p1"}, result.Eliminated)
	s.True(result.GameOver)
	s.Equal(model.PhaseGameOver, s.phase())

	p1, err := s.store.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.True(p1.Eliminated)
	s.Equal(int64(0), p1.Capital)
}

func (s *ResolverSuite) TestLastRoundEndsGame() {
	s.seed(1000, 1, map[string]int64{"p1": 1000, "p2": 1000}, "p1", "p2")
	s.bid("p1", 10)
	s.bid("p2", 20)
	s.publisher.EXPECT().PublishRoundResult(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	result, err := s.resolver.Resolve(s.ctx, "room-1", 1)
	s.Require().NoError(err)

	s.True(result.GameOver)
	s.Equal(model.PhaseGameOver, s.phase())
}

func (s *ResolverSuite) TestNoBidsIsNoop() {
	s.seed(1000, 5, map[string]int64{"p1": 1000, "p2": 1000}, "p1", "p2")

	result, err := s.resolver.Resolve(s.ctx, "room-1", 1)
	s.Require().NoError(err)
	s.Nil(result)

	s.Equal(model.PhaseBidding, s.phase())
	s.Equal(int64(1000), s.capital("p1"))
}

func (s *ResolverSuite) TestWrongRoundIsRejected() {
	s.seed(1000, 5, map[string]int64{"p1": 1000, "p2": 1000}, "p1", "p2")
	s.bid("p1", 100)

	_, err := s.resolver.Resolve(s.ctx, "room-1", 2)
	s.ErrorIs(err, model.ErrRoundMismatch)
	s.Equal(int64(1000), s.capital("p1"))
}

func (s *ResolverSuite) TestNotBiddingIsRejected() {
	s.seed(1000, 5, map[string]int64{"p1": 1000, "p2": 1000}, "p1", "p2")
	s.bid("p1", 100)
	s.Require().NoError(s.store.UpdateRoom(s.ctx, "room-1", model.PhaseUpdate(model.PhaseResults)))

	_, err := s.resolver.Resolve(s.ctx, "room-1", 1)
	s.ErrorIs(err, model.ErrRoundMismatch)
}

func (s *ResolverSuite) TestPublishFailureDoesNotFailResolution() {
	s.seed(1000, 5, map[string]int64{"p1": 1000, "p2": 1000}, "p1", "p2")
	s.bid("p1", 100)
	s.bid("p2", 200)
	s.publisher.EXPECT().PublishRoundResult(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	result, err := s.resolver.Resolve(s.ctx, "room-1", 1)
	s.Require().NoError(err)
	s.NotNil(result)
	s.Equal(model.PhaseResults, s.phase())
}

func (s *ResolverSuite) TestMissingRoom() {
	_, err := s.resolver.Resolve(s.ctx, "ghost", 1)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func TestIsGameOver(t *testing.T) {
	tests := []struct {
		active, round, max int
		want               bool
	}{
		{active: 3, round: 1, max: 10, want: false},
		{active: 2, round: 9, max: 10, want: false},
		{active: 2, round: 10, max: 10, want: true},
		{active: 1, round: 1, max: 10, want: true},
		{active: 0, round: 1, max: 10, want: true},
	}
	for _, tt := range tests {
		if got := resolver.IsGameOver(tt.active, tt.round, tt.max); got != tt.want {
			t.Errorf("IsGameOver(%d, %d, %d) = %v, want %v", tt.active, tt.round, tt.max, got, tt.want)
		}
	}
}

func TestTabulateUpdatesPlayersInPlace(t *testing.T) {
	room := &model.Room{
		ID:        "room-1",
		MaxRounds: 3,
		Items:     []model.Item{{ID: "x", Name: "Lot", Price: 1000}},
	}
	players := []*model.Player{
		{ID: "p1", DisplayName: "Alice", Capital: 1000},
		{ID: "p2", DisplayName: "Bob", Capital: 200},
	}
	bids := []*model.Bid{
		{PlayerID: "p1", Round: 1, Amount: 400},
		{PlayerID: "p2", Round: 1, Amount: 200},
	}

	result, err := resolver.Tabulate(room, 1, bids, players)
	if err != nil {
		t.Fatalf("Tabulate: %v", err)
	}
	if result.WinnerID != "p1" || result.WinnerGain != 600 {
		t.Errorf("winner = %s gain %d, want p1 gain 600", result.WinnerID, result.WinnerGain)
	}
	if players[0].Capital != 1600 || players[1].Capital != 0 || !players[1].Eliminated {
		t.Errorf("players not updated: %+v %+v", players[0], players[1])
	}
	if !result.GameOver {
		t.Error("expected game over with one player left")
	}

	if _, err := resolver.Tabulate(room, 2, bids, players); !errors.Is(err, model.ErrRoundMismatch) {
		t.Errorf("round without item: got %v", err)
	}
}
