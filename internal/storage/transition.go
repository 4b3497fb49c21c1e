package storage

import (
	"context"

	"github.com/mcoot/bidwars/internal/model"
)

// Transition moves room out of the phase and round it was read in. It
// returns model.ErrInvalidPhase if the phase table forbids the move, and
// false if the stored room has changed since it was read.
func Transition(ctx context.Context, store Storage, room *model.Room, update model.RoomUpdate) (bool, error) {
	if update.Phase == nil || !room.Phase.CanTransitionTo(*update.Phase) {
		return false, model.ErrInvalidPhase
	}
	return store.TransitionRoom(ctx, room.ID, room.Phase, room.CurrentRound, update)
}
