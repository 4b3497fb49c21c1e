// Package storagetest holds the behaviour every storage backend must share.
// Backend test files run it against their own constructor.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
)

// Suite exercises a storage.Storage implementation
type Suite struct {
	suite.Suite

	// NewStorage returns an empty store for each test
	NewStorage func() storage.Storage

	store storage.Storage
	ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.store = s.NewStorage()
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) createRoom(id string, code string) *model.Room {
	room := &model.Room{
		ID:        model.RoomID(id),
		Code:      model.RoomCode(code),
		Phase:     model.PhaseWaiting,
		HostID:    "host",
		MaxRounds: 10,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.store.CreateRoom(s.ctx, room))
	return room
}

func (s *Suite) createPlayer(roomID model.RoomID, id string, capital int64) *model.Player {
	player := &model.Player{
		ID:          model.PlayerID(id),
		RoomID:      roomID,
		DisplayName: "Player " + id,
		Capital:     capital,
		JoinedAt:    s.now,
	}
	s.Require().NoError(s.store.CreatePlayer(s.ctx, player))
	return player
}

// Rooms

func (s *Suite) TestCreateAndGetRoom() {
	s.createRoom("room-1", "ABCDEF")

	room, err := s.store.GetRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ABCDEF"), room.Code)
	s.Equal(model.PhaseWaiting, room.Phase)
	s.Equal(model.PlayerID("host"), room.HostID)
	s.Equal(10, room.MaxRounds)
	s.Equal(0, room.LastResolvedRound)
	s.Empty(room.Items)
}

func (s *Suite) TestGetRoomNotFound() {
	_, err := s.store.GetRoom(s.ctx, "missing")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestGetRoomByCode() {
	s.createRoom("room-1", "ABCDEF")

	room, err := s.store.GetRoomByCode(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	s.Equal(model.RoomID("room-1"), room.ID)

	_, err = s.store.GetRoomByCode(s.ctx, "ZZZZZZ")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestRoomCodeExists() {
	s.createRoom("room-1", "ABCDEF")

	exists, err := s.store.RoomCodeExists(s.ctx, "ABCDEF")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.RoomCodeExists(s.ctx, "ZZZZZZ")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestUpdateRoomOnlyTouchesGivenFields() {
	s.createRoom("room-1", "ABCDEF")
	items := model.Catalog()[:3]
	round := 1

	err := s.store.UpdateRoom(s.ctx, "room-1", model.RoomUpdate{
		Phase:        ptr(model.PhaseBidding),
		CurrentRound: &round,
		Items:        items,
	})
	s.Require().NoError(err)

	err = s.store.UpdateRoom(s.ctx, "room-1", model.PhaseUpdate(model.PhaseResults))
	s.Require().NoError(err)

	room, err := s.store.GetRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(model.PhaseResults, room.Phase)
	s.Equal(1, room.CurrentRound)
	s.Equal(items, room.Items)
}

func (s *Suite) TestUpdateRoomDoesNotResetMarker() {
	s.createRoom("room-1", "ABCDEF")
	claimed, err := s.store.ClaimResolution(s.ctx, "room-1", 1)
	s.Require().NoError(err)
	s.Require().True(claimed)

	s.Require().NoError(s.store.UpdateRoom(s.ctx, "room-1", model.PhaseUpdate(model.PhaseResults)))

	room, err := s.store.GetRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(1, room.LastResolvedRound)
}

func (s *Suite) TestUpdateRoomNotFound() {
	err := s.store.UpdateRoom(s.ctx, "missing", model.PhaseUpdate(model.PhaseBidding))
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestTransitionRoomRequiresExpectedState() {
	s.createRoom("room-1", "ABCDEF")
	round := 1

	ok, err := s.store.TransitionRoom(s.ctx, "room-1", model.PhaseWaiting, 0, model.RoomUpdate{
		Phase:        ptr(model.PhaseBidding),
		CurrentRound: &round,
		Items:        model.Catalog()[:2],
	})
	s.Require().NoError(err)
	s.True(ok)

	// A writer that read the room before the first transition loses
	ok, err = s.store.TransitionRoom(s.ctx, "room-1", model.PhaseWaiting, 0, model.RoomUpdate{
		Phase: ptr(model.PhaseBidding),
		Items: model.Catalog()[2:4],
	})
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.store.TransitionRoom(s.ctx, "room-1", model.PhaseBidding, 2, model.PhaseUpdate(model.PhaseResults))
	s.Require().NoError(err)
	s.False(ok)

	room, err := s.store.GetRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(model.PhaseBidding, room.Phase)
	s.Equal(1, room.CurrentRound)
	s.Equal(model.Catalog()[:2], room.Items)
}

func (s *Suite) TestTransitionRoomNotFound() {
	_, err := s.store.TransitionRoom(s.ctx, "missing", model.PhaseWaiting, 0, model.PhaseUpdate(model.PhaseBidding))
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestConcurrentTransitionsHaveSingleWinner() {
	s.createRoom("room-1", "ABCDEF")
	s.Require().NoError(s.store.UpdateRoom(s.ctx, "room-1", model.RoomUpdate{
		Phase:        ptr(model.PhaseResults),
		CurrentRound: ptr(1),
	}))

	const callers = 8
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := s.store.TransitionRoom(s.ctx, "room-1", model.PhaseResults, 1, model.RoomUpdate{
				Phase:        ptr(model.PhaseBidding),
				CurrentRound: ptr(2),
			})
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	room, err := s.store.GetRoom(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(2, room.CurrentRound)
}

// Resolution claims

func (s *Suite) TestClaimResolutionOnlyOncePerRound() {
	s.createRoom("room-1", "ABCDEF")

	claimed, err := s.store.ClaimResolution(s.ctx, "room-1", 1)
	s.Require().NoError(err)
	s.True(claimed)

	claimed, err = s.store.ClaimResolution(s.ctx, "room-1", 1)
	s.Require().NoError(err)
	s.False(claimed)

	claimed, err = s.store.ClaimResolution(s.ctx, "room-1", 2)
	s.Require().NoError(err)
	s.True(claimed)

	// Older rounds can never be claimed again
	claimed, err = s.store.ClaimResolution(s.ctx, "room-1", 1)
	s.Require().NoError(err)
	s.False(claimed)
}

func (s *Suite) TestClaimResolutionNotFound() {
	_, err := s.store.ClaimResolution(s.ctx, "missing", 1)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestConcurrentClaimsHaveSingleWinner() {
	s.createRoom("room-1", "ABCDEF")

	const callers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, callers)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			claimed, err := s.store.ClaimResolution(s.ctx, "room-1", 1)
			if err != nil {
				errs <- err
				return
			}
			if claimed {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Require().NoError(err)
	}
	s.Equal(int32(1), wins.Load())
}

// Players

func (s *Suite) TestListPlayersInJoinOrder() {
	s.createRoom("room-1", "ABCDEF")
	s.createRoom("room-2", "GHJKLM")
	for i := 1; i <= 4; i++ {
		s.createPlayer("room-1", fmt.Sprintf("p%d", i), 1000)
	}
	s.createPlayer("room-2", "other", 1000)

	players, err := s.store.ListPlayers(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Require().Len(players, 4)
	for i, p := range players {
		s.Equal(model.PlayerID(fmt.Sprintf("p%d", i+1)), p.ID)
		s.Equal(int64(1000), p.Capital)
	}
}

func (s *Suite) TestListPlayersEmptyRoom() {
	players, err := s.store.ListPlayers(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *Suite) TestCreateAndGetPlayer() {
	s.createRoom("room-1", "ABCDEF")
	player := &model.Player{
		ID:          "bot-1",
		RoomID:      "room-1",
		DisplayName: "CyberVoid",
		Capital:     1000,
		IsAI:        true,
		BotStrategy: "random",
		JoinedAt:    s.now,
	}
	s.Require().NoError(s.store.CreatePlayer(s.ctx, player))

	got, err := s.store.GetPlayer(s.ctx, "bot-1")
	s.Require().NoError(err)
	s.Equal(player.DisplayName, got.DisplayName)
	s.Equal(model.RoomID("room-1"), got.RoomID)
	s.True(got.IsAI)
	s.Equal("random", got.BotStrategy)
	s.False(got.Eliminated)
}

func (s *Suite) joiner(roomID model.RoomID, id string) *model.Player {
	return &model.Player{ID: model.PlayerID(id), RoomID: roomID, DisplayName: "Player " + id, Capital: 1000, JoinedAt: s.now}
}

func (s *Suite) TestJoinRoomSeatsPlayer() {
	s.createRoom("room-1", "ABCDEF")
	s.Require().NoError(s.store.JoinRoom(s.ctx, s.joiner("room-1", "p1"), 2))

	players, err := s.store.ListPlayers(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Require().Len(players, 1)
	s.Equal(model.PlayerID("p1"), players[0].ID)
}

func (s *Suite) TestJoinRoomRejectsFullRoom() {
	s.createRoom("room-1", "ABCDEF")
	s.Require().NoError(s.store.JoinRoom(s.ctx, s.joiner("room-1", "p1"), 1))

	err := s.store.JoinRoom(s.ctx, s.joiner("room-1", "p2"), 1)
	s.ErrorIs(err, model.ErrRoomFull)
	_, err = s.store.GetPlayer(s.ctx, "p2")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestJoinRoomRejectsStartedRoom() {
	s.createRoom("room-1", "ABCDEF")
	s.Require().NoError(s.store.UpdateRoom(s.ctx, "room-1", model.PhaseUpdate(model.PhaseBidding)))

	err := s.store.JoinRoom(s.ctx, s.joiner("room-1", "p1"), 4)
	s.ErrorIs(err, model.ErrGameAlreadyStarted)
}

func (s *Suite) TestJoinRoomNotFound() {
	err := s.store.JoinRoom(s.ctx, s.joiner("missing", "p1"), 4)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestConcurrentJoinsRespectCapacity() {
	s.createRoom("room-1", "ABCDEF")

	const callers, capacity = 10, 3
	var seated atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := s.store.JoinRoom(s.ctx, s.joiner("room-1", fmt.Sprintf("p%d", i)), capacity); err == nil {
				seated.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(capacity), seated.Load())
	players, err := s.store.ListPlayers(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Len(players, capacity)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.store.GetPlayer(s.ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestUpdatePlayer() {
	s.createRoom("room-1", "ABCDEF")
	s.createPlayer("room-1", "p1", 1000)

	capital := int64(-200)
	eliminated := true
	err := s.store.UpdatePlayer(s.ctx, "p1", model.PlayerUpdate{Capital: &capital, Eliminated: &eliminated})
	s.Require().NoError(err)

	got, err := s.store.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(int64(-200), got.Capital)
	s.True(got.Eliminated)
}

func (s *Suite) TestUpdatePlayerNeverReinstates() {
	s.createRoom("room-1", "ABCDEF")
	s.createPlayer("room-1", "p1", 1000)

	eliminated := true
	s.Require().NoError(s.store.UpdatePlayer(s.ctx, "p1", model.PlayerUpdate{Eliminated: &eliminated}))

	capital := int64(500)
	reinstated := false
	s.Require().NoError(s.store.UpdatePlayer(s.ctx, "p1", model.PlayerUpdate{Capital: &capital, Eliminated: &reinstated}))

	got, err := s.store.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(int64(500), got.Capital)
	s.True(got.Eliminated)
}

func (s *Suite) TestUpdatePlayerNotFound() {
	capital := int64(1)
	err := s.store.UpdatePlayer(s.ctx, "missing", model.PlayerUpdate{Capital: &capital})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Bids

func (s *Suite) TestInsertAndListBidsInSubmissionOrder() {
	s.createRoom("room-1", "ABCDEF")
	order := []string{"p3", "p1", "p2"}
	for i, id := range order {
		s.createPlayer("room-1", id, 1000)
		bid := &model.Bid{
			RoomID:    "room-1",
			PlayerID:  model.PlayerID(id),
			Round:     1,
			Amount:    int64(100 * (i + 1)),
			CreatedAt: s.now.Add(time.Duration(i) * time.Second),
		}
		s.Require().NoError(s.store.InsertBid(s.ctx, bid))
	}

	bids, err := s.store.ListBids(s.ctx, "room-1", 1)
	s.Require().NoError(err)
	s.Require().Len(bids, 3)
	for i, bid := range bids {
		s.Equal(model.PlayerID(order[i]), bid.PlayerID)
		s.Equal(int64(100*(i+1)), bid.Amount)
		s.Equal(1, bid.Round)
	}

	other, err := s.store.ListBids(s.ctx, "room-1", 2)
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *Suite) TestInsertBidRejectsDuplicate() {
	s.createRoom("room-1", "ABCDEF")
	s.createPlayer("room-1", "p1", 1000)
	bid := &model.Bid{RoomID: "room-1", PlayerID: "p1", Round: 1, Amount: 100, CreatedAt: s.now}
	s.Require().NoError(s.store.InsertBid(s.ctx, bid))

	dup := &model.Bid{RoomID: "room-1", PlayerID: "p1", Round: 1, Amount: 900, CreatedAt: s.now}
	err := s.store.InsertBid(s.ctx, dup)
	s.ErrorIs(err, model.ErrDuplicateBid)

	// Same player may bid again in the next round
	next := &model.Bid{RoomID: "room-1", PlayerID: "p1", Round: 2, Amount: 50, CreatedAt: s.now}
	s.NoError(s.store.InsertBid(s.ctx, next))

	bids, err := s.store.ListBids(s.ctx, "room-1", 1)
	s.Require().NoError(err)
	s.Require().Len(bids, 1)
	s.Equal(int64(100), bids[0].Amount)
}

func (s *Suite) TestConcurrentDuplicateBidsKeepOne() {
	s.createRoom("room-1", "ABCDEF")
	s.createPlayer("room-1", "p1", 1000)

	const callers = 8
	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			bid := &model.Bid{RoomID: "room-1", PlayerID: "p1", Round: 1, Amount: amount, CreatedAt: s.now}
			if err := s.store.InsertBid(s.ctx, bid); err == nil {
				accepted.Add(1)
			}
		}(int64(i))
	}
	wg.Wait()

	s.Equal(int32(1), accepted.Load())
	bids, err := s.store.ListBids(s.ctx, "room-1", 1)
	s.Require().NoError(err)
	s.Len(bids, 1)
}

// Sessions

func (s *Suite) TestSessionLifecycle() {
	session := &model.Session{
		ID:        "sess-1",
		PlayerID:  "p1",
		RoomID:    "room-1",
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(time.Hour),
	}
	s.Require().NoError(s.store.SaveSession(s.ctx, session))

	got, err := s.store.GetSession(s.ctx, "sess-1")
	s.Require().NoError(err)
	s.Equal(session.PlayerID, got.PlayerID)
	s.Equal(session.RoomID, got.RoomID)
	s.True(session.ExpiresAt.Equal(got.ExpiresAt))

	s.Require().NoError(s.store.DeleteSession(s.ctx, "sess-1"))
	_, err = s.store.GetSession(s.ctx, "sess-1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func ptr[T any](v T) *T {
	return &v
}
