package memory

import (
	"context"
	"sync"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Records are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	rooms       map[model.RoomID]*model.Room
	roomCodes   map[model.RoomCode]model.RoomID
	players     map[model.PlayerID]*model.Player
	roomPlayers map[model.RoomID][]model.PlayerID
	bids        map[roundKey][]*model.Bid
	sessions    map[string]*model.Session
}

type roundKey struct {
	roomID model.RoomID
	round  int
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms:       make(map[model.RoomID]*model.Room),
		roomCodes:   make(map[model.RoomCode]model.RoomID),
		players:     make(map[model.PlayerID]*model.Player),
		roomPlayers: make(map[model.RoomID][]model.PlayerID),
		bids:        make(map[roundKey][]*model.Bid),
		sessions:    make(map[string]*model.Session),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = copyRoom(room)
	s.roomCodes[room.Code] = room.ID
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return copyRoom(room), nil
}

func (s *Storage) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	id, ok := s.roomCodes[code]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return s.GetRoom(ctx, id)
}

func (s *Storage) RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roomCodes[code]
	return ok, nil
}

func (s *Storage) UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return model.ErrRoomNotFound
	}
	applyRoomUpdate(room, update)
	return nil
}

func (s *Storage) TransitionRoom(ctx context.Context, id model.RoomID, from model.Phase, fromRound int, update model.RoomUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return false, model.ErrRoomNotFound
	}
	if room.Phase != from || room.CurrentRound != fromRound {
		return false, nil
	}
	applyRoomUpdate(room, update)
	return true, nil
}

func (s *Storage) ClaimResolution(ctx context.Context, id model.RoomID, round int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return false, model.ErrRoomNotFound
	}
	if room.LastResolvedRound >= round {
		return false, nil
	}
	room.LastResolvedRound = round
	return true, nil
}

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *player
	s.players[player.ID] = &p
	s.roomPlayers[player.RoomID] = append(s.roomPlayers[player.RoomID], player.ID)
	return nil
}

func (s *Storage) JoinRoom(ctx context.Context, player *model.Player, maxPlayers int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[player.RoomID]
	if !ok {
		return model.ErrRoomNotFound
	}
	if room.Phase != model.PhaseWaiting {
		return model.ErrGameAlreadyStarted
	}
	if len(s.roomPlayers[player.RoomID]) >= maxPlayers {
		return model.ErrRoomFull
	}
	p := *player
	s.players[player.ID] = &p
	s.roomPlayers[player.RoomID] = append(s.roomPlayers[player.RoomID], player.ID)
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

func (s *Storage) ListPlayers(ctx context.Context, roomID model.RoomID) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.roomPlayers[roomID]
	players := make([]*model.Player, 0, len(ids))
	for _, id := range ids {
		p := *s.players[id]
		players = append(players, &p)
	}
	return players, nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, id model.PlayerID, update model.PlayerUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	if update.Capital != nil {
		player.Capital = *update.Capital
	}
	if update.Eliminated != nil && *update.Eliminated {
		player.Eliminated = true
	}
	return nil
}

// Bid operations

func (s *Storage) InsertBid(ctx context.Context, bid *model.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := roundKey{roomID: bid.RoomID, round: bid.Round}
	for _, existing := range s.bids[key] {
		if existing.PlayerID == bid.PlayerID {
			return model.ErrDuplicateBid
		}
	}
	b := *bid
	s.bids[key] = append(s.bids[key], &b)
	return nil
}

func (s *Storage) ListBids(ctx context.Context, roomID model.RoomID, round int) ([]*model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.bids[roundKey{roomID: roomID, round: round}]
	bids := make([]*model.Bid, 0, len(stored))
	for _, bid := range stored {
		b := *bid
		bids = append(bids, &b)
	}
	return bids, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := *session
	s.sessions[session.ID] = &sess
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	sess := *session
	return &sess, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func applyRoomUpdate(room *model.Room, update model.RoomUpdate) {
	if update.Phase != nil {
		room.Phase = *update.Phase
	}
	if update.CurrentRound != nil {
		room.CurrentRound = *update.CurrentRound
	}
	if update.Items != nil {
		room.Items = append([]model.Item(nil), update.Items...)
	}
}

func copyRoom(room *model.Room) *model.Room {
	r := *room
	r.Items = append([]model.Item(nil), room.Items...)
	return &r
}
