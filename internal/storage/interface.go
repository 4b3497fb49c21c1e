package storage

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks github.com/mcoot/bidwars/internal/storage Publisher

import (
	"context"

	"github.com/mcoot/bidwars/internal/model"
)

// Storage is the persistent record store behind the game. It is the single
// source of truth for rooms, players and bids, and the synchronization point
// for round resolution.
type Storage interface {
	// Room operations
	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error)
	RoomCodeExists(ctx context.Context, code model.RoomCode) (bool, error)
	// UpdateRoom overwrites the non-nil fields of update unconditionally
	UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) error
	// TransitionRoom applies update only while the room is still in phase
	// from at round fromRound, and reports whether it did. Concurrent
	// transitions out of the same state have a single winner.
	TransitionRoom(ctx context.Context, id model.RoomID, from model.Phase, fromRound int, update model.RoomUpdate) (bool, error)
	// ClaimResolution atomically sets the room's last resolved round to round
	// if and only if its stored value is strictly less than round. Exactly one
	// of any set of concurrent callers for the same round gets true.
	ClaimResolution(ctx context.Context, id model.RoomID, round int) (bool, error)

	// Player operations
	CreatePlayer(ctx context.Context, player *model.Player) error
	// JoinRoom creates player in its room while the room is waiting and
	// seats fewer than maxPlayers. It returns model.ErrRoomNotFound,
	// model.ErrGameAlreadyStarted or model.ErrRoomFull otherwise.
	JoinRoom(ctx context.Context, player *model.Player, maxPlayers int) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	// ListPlayers returns the room's players in join order
	ListPlayers(ctx context.Context, roomID model.RoomID) ([]*model.Player, error)
	// UpdatePlayer overwrites the non-nil fields of update. An eliminated
	// player is never reinstated.
	UpdatePlayer(ctx context.Context, id model.PlayerID, update model.PlayerUpdate) error

	// Bid operations
	// InsertBid returns model.ErrDuplicateBid if the player already bid in
	// that round
	InsertBid(ctx context.Context, bid *model.Bid) error
	// ListBids returns the round's bids in submission order
	ListBids(ctx context.Context, roomID model.RoomID, round int) ([]*model.Bid, error)

	// Session operations
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Publisher delivers round results to room subscribers. Delivery is best
// effort; persisted state stays authoritative.
type Publisher interface {
	PublishRoundResult(ctx context.Context, roomID model.RoomID, result *model.RoundResult) error
}

// EventPublisher delivers room lifecycle events to room subscribers. Like
// Publisher it is best effort.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *model.Event)
}
