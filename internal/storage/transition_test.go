package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
	"github.com/mcoot/bidwars/internal/storage/memory"
)

func TestTransitionFollowsPhaseTable(t *testing.T) {
	tests := []struct {
		name  string
		from  model.Phase
		to    model.Phase
		legal bool
	}{
		{"start", model.PhaseWaiting, model.PhaseBidding, true},
		{"resolve", model.PhaseBidding, model.PhaseResults, true},
		{"advance", model.PhaseResults, model.PhaseBidding, true},
		{"finish", model.PhaseResults, model.PhaseGameOver, true},
		{"skip bidding", model.PhaseWaiting, model.PhaseResults, false},
		{"restart", model.PhaseGameOver, model.PhaseBidding, false},
		{"back to lobby", model.PhaseBidding, model.PhaseWaiting, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			room := &model.Room{ID: "room-1", Code: "ABCDEF", Phase: tt.from, CurrentRound: 1, MaxRounds: 3}
			require.NoError(t, store.CreateRoom(ctx, room))

			ok, err := storage.Transition(ctx, store, room, model.PhaseUpdate(tt.to))
			stored, getErr := store.GetRoom(ctx, "room-1")
			require.NoError(t, getErr)

			if tt.legal {
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, tt.to, stored.Phase)
				return
			}
			assert.ErrorIs(t, err, model.ErrInvalidPhase)
			assert.False(t, ok)
			assert.Equal(t, tt.from, stored.Phase)
		})
	}
}

func TestTransitionRequiresPhase(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	room := &model.Room{ID: "room-1", Code: "ABCDEF", Phase: model.PhaseResults, CurrentRound: 1}
	require.NoError(t, store.CreateRoom(ctx, room))

	round := 2
	_, err := storage.Transition(ctx, store, room, model.RoomUpdate{CurrentRound: &round})
	assert.ErrorIs(t, err, model.ErrInvalidPhase)
}
