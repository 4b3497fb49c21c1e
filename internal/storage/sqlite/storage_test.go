package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
	"github.com/mcoot/bidwars/internal/storage/storagetest"
)

func openTempStore(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "bidwars.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func() storage.Storage {
			return openTempStore(t)
		},
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidwars.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.CreateRoom(ctx, &model.Room{
		ID: "room-1", Code: "ABCDEF", Phase: model.PhaseWaiting, MaxRounds: 5,
		Items: model.Catalog()[:5],
	}))
	require.NoError(t, s.Close())

	// Migrations must not be re-applied on reopen
	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	room, err := s.GetRoomByCode(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, model.Catalog()[:5], room.Items)
}

func TestApplyMigrationsRecordsEachFileOnce(t *testing.T) {
	s := openTempStore(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"002_extra.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE extra (id TEXT);\n-- +migrate Down\nDROP TABLE extra;\n")},
	}
	require.NoError(t, applyMigrations(ctx, s.db, fsys))
	require.NoError(t, applyMigrations(ctx, s.db, fsys))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestExtractUp(t *testing.T) {
	assert.Equal(t, "\nCREATE TABLE a (x);\n", extractUp("-- +migrate Up\nCREATE TABLE a (x);\n-- +migrate Down\nDROP TABLE a;"))
	assert.Equal(t, "CREATE TABLE b (y);", extractUp("CREATE TABLE b (y);"))
}
