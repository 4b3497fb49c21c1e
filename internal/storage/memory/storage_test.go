package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
	"github.com/mcoot/bidwars/internal/storage/storagetest"
)

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func() storage.Storage { return New() },
	})
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateRoom(ctx, &model.Room{ID: "room-1", Code: "ABCDEF", Items: model.Catalog()[:2]}))
	require.NoError(t, s.CreatePlayer(ctx, &model.Player{ID: "p1", RoomID: "room-1", Capital: 1000}))

	room, err := s.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	room.LastResolvedRound = 99
	room.Items[0].Price = 1

	player, err := s.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	player.Capital = 0

	room, err = s.GetRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 0, room.LastResolvedRound)
	assert.Equal(t, int64(45000), room.Items[0].Price)

	player, err = s.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), player.Capital)
}
