package factory

import (
	"time"

	"github.com/mcoot/bidwars/internal/dependencies/mocks"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
	"github.com/mcoot/bidwars/internal/storage/memory"
	"github.com/mcoot/bidwars/internal/testutil"
)

// TestSigningKey signs session tokens in test apps
const TestSigningKey = "test-signing-key"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App on the memory store with mocked clock and random
func NewTestApp() *TestApp {
	return NewTestAppWithStorage(memory.New())
}

// NewTestAppWithStorage creates a test App on the given store. The game uses
// a fixed three-item catalog so rounds are predictable.
func NewTestAppWithStorage(store storage.Storage) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, nil, mockClock, mockRandom, testSettings(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

func testSettings() Settings {
	settings := DefaultSettings()
	settings.Auth.SigningKey = []byte(TestSigningKey)
	settings.Room.DefaultMaxRounds = len(TestCatalog())
	settings.Game.Catalog = TestCatalog()
	return settings
}

// TestCatalog is a small catalog with round prices
func TestCatalog() []model.Item {
	return []model.Item{
		{ID: "lamp", Name: "Lamp", Category: "Home", Price: 1000},
		{ID: "chair", Name: "Chair", Category: "Home", Price: 1000},
		{ID: "clock", Name: "Clock", Category: "Home", Price: 1000},
	}
}
