// Package bidding decides whether a bid may be admitted and at what amount.
package bidding

import (
	"math"

	"github.com/mcoot/bidwars/internal/model"
)

// Request is a bid as submitted by a player
type Request struct {
	Amount float64
	// Round is the round the player believes is open. Zero means the
	// current round.
	Round int
}

// Validate checks a bid against snapshots of the room and the bidding player
// and returns the amount to record. Duplicate bids are caught by storage,
// not here.
func Validate(room *model.Room, player *model.Player, req Request) (int64, error) {
	if room.Phase != model.PhaseBidding {
		return 0, model.ErrNotAcceptingBids
	}
	if player.RoomID != room.ID {
		return 0, model.ErrNotInRoom
	}
	if player.Eliminated {
		return 0, model.ErrPlayerEliminated
	}
	if req.Round != 0 && req.Round != room.CurrentRound {
		return 0, model.ErrStaleRound
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount < 0 {
		return 0, model.ErrInvalidBidAmount
	}
	return Clamp(req.Amount, player.Capital), nil
}

// Clamp truncates a requested amount and caps it at the player's capital.
// The result is never negative.
func Clamp(requested float64, capital int64) int64 {
	if capital <= 0 {
		return 0
	}
	if requested >= float64(capital) {
		return capital
	}
	return int64(math.Floor(requested))
}
