package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		legal    bool
	}{
		{PhaseWaiting, PhaseBidding, true},
		{PhaseWaiting, PhaseResults, false},
		{PhaseBidding, PhaseResults, true},
		{PhaseBidding, PhaseGameOver, true},
		{PhaseBidding, PhaseWaiting, false},
		{PhaseResults, PhaseBidding, true},
		{PhaseResults, PhaseGameOver, true},
		{PhaseGameOver, PhaseBidding, false},
		{PhaseGameOver, PhaseResults, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.legal, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, ErrDuplicateBid, ErrValidation)
	assert.ErrorIs(t, ErrRoomNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrNotHost, ErrUnauthorized)
	assert.NotErrorIs(t, ErrNotHost, ErrValidation)

	driverErr := errors.New("connection reset")
	err := StorageFailure("get room", driverErr)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, driverErr)
}

func TestItemForRound(t *testing.T) {
	room := &Room{Items: Catalog()[:3], CurrentRound: 2}

	item, ok := room.CurrentItem()
	assert.True(t, ok)
	assert.Equal(t, "2", item.ID)

	_, ok = room.ItemForRound(0)
	assert.False(t, ok)
	_, ok = room.ItemForRound(4)
	assert.False(t, ok)
}

func TestCatalogIsCopied(t *testing.T) {
	items := Catalog()
	items[0].Price = 1
	assert.Equal(t, int64(45000), Catalog()[0].Price)
	assert.Len(t, Catalog(), 20)
}
