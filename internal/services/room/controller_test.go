package room

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bidwars/internal/dependencies/mocks"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/auth"
	"github.com/mcoot/bidwars/internal/storage/memory"
	"github.com/mcoot/bidwars/internal/testutil"
)

type recordingEvents struct {
	mu     sync.Mutex
	events []*model.Event
}

func (r *recordingEvents) PublishEvent(_ context.Context, event *model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	events     *recordingEvents
	auth       *auth.Service
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.events = &recordingEvents{}
	authCfg := auth.DefaultConfig()
	authCfg.SigningKey = []byte("test-signing-key")
	s.auth = auth.New(s.storage, s.clock, s.random, authCfg, testutil.NopLogger())
	s.controller = NewController(s.storage, s.auth, s.events, s.clock, s.random, DefaultConfig(), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ControllerSuite) create() *Membership {
	s.random.QueueString("ABCDEF")
	m, err := s.controller.Create(s.ctx, "Host", 0)
	s.Require().NoError(err)
	return m
}

func (s *ControllerSuite) TestCreate() {
	s.random.QueueString("ABCDEF")
	s.random.QueueID("room-1", "host-1")

	m, err := s.controller.Create(s.ctx, "  Alice  ", 5)
	s.Require().NoError(err)

	s.Equal(model.RoomID("room-1"), m.Room.ID)
	s.Equal(model.RoomCode("ABCDEF"), m.Room.Code)
	s.Equal(model.PhaseWaiting, m.Room.Phase)
	s.Equal(5, m.Room.MaxRounds)
	s.Equal(model.PlayerID("host-1"), m.Room.HostID)
	s.Equal("Alice", m.Player.DisplayName)
	s.Equal(int64(1000), m.Player.Capital)
	s.NotEmpty(m.Token.Value)

	session, err := s.auth.Authorize(s.ctx, m.Token.Value, "room-1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("host-1"), session.PlayerID)

	players, err := s.controller.Players(s.ctx, "room-1")
	s.Require().NoError(err)
	s.Len(players, 1)
}

func (s *ControllerSuite) TestCreateDefaultsMaxRounds() {
	m := s.create()
	s.Equal(10, m.Room.MaxRounds)
}

func (s *ControllerSuite) TestCreateRejectsBadInput() {
	tests := []struct {
		name      string
		hostName  string
		maxRounds int
		want      error
	}{
		{name: "empty name", hostName: "   ", maxRounds: 5, want: model.ErrInvalidPlayerName},
		{name: "long name", hostName: strings.Repeat("a", 21), maxRounds: 5, want: model.ErrInvalidPlayerName},
		{name: "symbols", hostName: "<script>", maxRounds: 5, want: model.ErrInvalidPlayerName},
		{name: "negative rounds", hostName: "Alice", maxRounds: -1, want: model.ErrInvalidMaxRounds},
		{name: "more rounds than items", hostName: "Alice", maxRounds: 21, want: model.ErrInvalidMaxRounds},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.controller.Create(s.ctx, tt.hostName, tt.maxRounds)
			s.ErrorIs(err, tt.want)
			s.ErrorIs(err, model.ErrValidation)
		})
	}
}

func (s *ControllerSuite) TestCreateRetriesTakenCode() {
	s.create()

	s.random.QueueString("ABCDEF", "GHJKLM")
	m, err := s.controller.Create(s.ctx, "Other", 0)
	s.Require().NoError(err)
	s.Equal(model.RoomCode("GHJKLM"), m.Room.Code)
}

func (s *ControllerSuite) TestJoin() {
	host := s.create()

	m, err := s.controller.Join(s.ctx, " abcdef ", "Bob")
	s.Require().NoError(err)
	s.Equal(host.Room.ID, m.Room.ID)
	s.Equal("Bob", m.Player.DisplayName)
	s.False(m.Player.IsAI)

	players, err := s.controller.Players(s.ctx, host.Room.ID)
	s.Require().NoError(err)
	s.Len(players, 2)
	s.Equal(host.Player.ID, players[0].ID)

	s.Require().Len(s.events.events, 1)
	s.Equal(model.EventPlayerJoined, s.events.events[0].Type)
	s.Equal(model.PlayerJoinedPayload{PlayerID: m.Player.ID, DisplayName: "Bob"}, s.events.events[0].Payload)
}

func (s *ControllerSuite) TestJoinUnknownCode() {
	_, err := s.controller.Join(s.ctx, "ZZZZZZ", "Bob")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestJoinStartedRoom() {
	host := s.create()
	s.Require().NoError(s.storage.UpdateRoom(s.ctx, host.Room.ID, model.PhaseUpdate(model.PhaseBidding)))

	_, err := s.controller.Join(s.ctx, host.Room.Code, "Bob")
	s.ErrorIs(err, model.ErrGameAlreadyStarted)
}

func (s *ControllerSuite) TestJoinFullRoom() {
	host := s.create()
	for i := range 7 {
		_, err := s.controller.Join(s.ctx, host.Room.Code, "Player "+string(rune('A'+i)))
		s.Require().NoError(err)
	}

	_, err := s.controller.Join(s.ctx, host.Room.Code, "Late")
	s.ErrorIs(err, model.ErrRoomFull)
}

func (s *ControllerSuite) TestJoinWithStaleWaitingRoom() {
	host := s.create()
	s.Require().NoError(s.storage.UpdateRoom(s.ctx, host.Room.ID, model.PhaseUpdate(model.PhaseBidding)))

	// host.Room still says waiting; the store has the final word
	_, err := s.controller.AddPlayer(s.ctx, host.Room, "Bob", "")
	s.ErrorIs(err, model.ErrGameAlreadyStarted)

	players, err := s.controller.Players(s.ctx, host.Room.ID)
	s.Require().NoError(err)
	s.Len(players, 1)
}

func (s *ControllerSuite) TestConcurrentJoinsNeverOverfill() {
	host := s.create()

	const joiners = 12
	var wg sync.WaitGroup
	errs := make([]error, joiners)
	for i := range joiners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.controller.Join(s.ctx, host.Room.Code, "Player "+string(rune('A'+i)))
		}()
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		s.ErrorIs(err, model.ErrRoomFull)
	}
	s.Equal(7, joined)

	players, err := s.controller.Players(s.ctx, host.Room.ID)
	s.Require().NoError(err)
	s.Len(players, 8)
}

func (s *ControllerSuite) TestAddBotPlayer() {
	host := s.create()

	bot, err := s.controller.AddPlayer(s.ctx, host.Room, "NetRunner_X", "random")
	s.Require().NoError(err)
	s.True(bot.IsAI)
	s.Equal("random", bot.BotStrategy)

	stored, err := s.storage.GetPlayer(s.ctx, bot.ID)
	s.Require().NoError(err)
	s.True(stored.IsAI)
}

func (s *ControllerSuite) TestGetByCodeNormalizes() {
	host := s.create()

	room, err := s.controller.GetByCode(s.ctx, "abcdef")
	s.Require().NoError(err)
	s.Equal(host.Room.ID, room.ID)

	room, err = s.controller.Get(s.ctx, host.Room.ID)
	s.Require().NoError(err)
	s.Equal(host.Room.Code, room.Code)
}
