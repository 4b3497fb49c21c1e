package trigger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/resolver"
	"github.com/mcoot/bidwars/internal/services/trigger"
	"github.com/mcoot/bidwars/internal/storage/memory"
	"github.com/mcoot/bidwars/internal/testutil"
)

// countingResolver records how often it runs
type countingResolver struct {
	calls atomic.Int32
	err   error
}

func (r *countingResolver) Resolve(ctx context.Context, roomID model.RoomID, round int) (*model.RoundResult, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &model.RoundResult{RoomID: roomID, Round: round}, nil
}

func seedRoom(t require.TestingT, store *memory.Storage, players int) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateRoom(ctx, &model.Room{
		ID:           "room-1",
		Code:         "ABCDEF",
		Phase:        model.PhaseBidding,
		HostID:       "p0",
		CurrentRound: 1,
		MaxRounds:    5,
		Items:        model.Catalog()[:5],
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
	for i := range players {
		require.NoError(t, store.CreatePlayer(ctx, &model.Player{
			ID:          model.PlayerID(fmt.Sprintf("p%d", i)),
			RoomID:      "room-1",
			DisplayName: fmt.Sprintf("Player %d", i),
			Capital:     1000,
			JoinedAt:    now,
		}))
	}
}

func placeBid(t require.TestingT, store *memory.Storage, player int, amount int64) {
	require.NoError(t, store.InsertBid(context.Background(), &model.Bid{
		RoomID:   "room-1",
		PlayerID: model.PlayerID(fmt.Sprintf("p%d", player)),
		Round:    1,
		Amount:   amount,
	}))
}

func TestAfterBidWaitsForAllActivePlayers(t *testing.T) {
	store := memory.New()
	seedRoom(t, store, 3)
	res := &countingResolver{}
	trg := trigger.New(store, res, testutil.NopLogger())

	placeBid(t, store, 0, 100)
	out, err := trg.AfterBid(context.Background(), "room-1", 1)
	require.NoError(t, err)
	assert.False(t, out.AllBidsIn)
	assert.False(t, out.Resolved)
	assert.Equal(t, int32(0), res.calls.Load())
}

func TestAfterBidIgnoresEliminatedPlayers(t *testing.T) {
	store := memory.New()
	seedRoom(t, store, 3)
	eliminated := true
	require.NoError(t, store.UpdatePlayer(context.Background(), "p2", model.PlayerUpdate{Eliminated: &eliminated}))
	res := &countingResolver{}
	trg := trigger.New(store, res, testutil.NopLogger())

	placeBid(t, store, 0, 100)
	placeBid(t, store, 1, 200)
	out, err := trg.AfterBid(context.Background(), "room-1", 1)
	require.NoError(t, err)
	assert.True(t, out.AllBidsIn)
	assert.True(t, out.Resolved)
	assert.NotNil(t, out.Result)
}

func TestAfterBidOnlyFirstCallerResolves(t *testing.T) {
	store := memory.New()
	seedRoom(t, store, 2)
	res := &countingResolver{}
	trg := trigger.New(store, res, testutil.NopLogger())
	placeBid(t, store, 0, 100)
	placeBid(t, store, 1, 200)

	first, err := trg.AfterBid(context.Background(), "room-1", 1)
	require.NoError(t, err)
	second, err := trg.AfterBid(context.Background(), "room-1", 1)
	require.NoError(t, err)

	assert.True(t, first.Resolved)
	assert.True(t, second.AllBidsIn)
	assert.False(t, second.Resolved)
	assert.Equal(t, int32(1), res.calls.Load())
}

func TestAfterBidSurfacesResolverFailure(t *testing.T) {
	store := memory.New()
	seedRoom(t, store, 1)
	res := &countingResolver{err: errors.New("boom")}
	trg := trigger.New(store, res, testutil.NopLogger())
	placeBid(t, store, 0, 100)

	out, err := trg.AfterBid(context.Background(), "room-1", 1)
	assert.Error(t, err)
	assert.False(t, out.Resolved)

	// The claim is spent; the round stays stuck rather than re-resolving
	_, err = trg.AfterBid(context.Background(), "room-1", 1)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), res.calls.Load())
}

// Two submissions both see "all bids in" at once; only one resolves, and
// capital moves exactly once
func TestSimultaneousLastBidsResolveOnce(t *testing.T) {
	store := memory.New()
	seedRoom(t, store, 2)
	trg := trigger.New(store, resolver.New(store, nil, testutil.NopLogger()), testutil.NopLogger())
	placeBid(t, store, 0, 300)
	placeBid(t, store, 1, 500)

	var wg sync.WaitGroup
	outcomes := make([]trigger.Outcome, 2)
	start := make(chan struct{})
	for i := range outcomes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			out, err := trg.AfterBid(context.Background(), "room-1", 1)
			assert.NoError(t, err)
			outcomes[i] = out
		}()
	}
	close(start)
	wg.Wait()

	assert.True(t, outcomes[0].AllBidsIn)
	assert.True(t, outcomes[1].AllBidsIn)
	assert.NotEqual(t, outcomes[0].Resolved, outcomes[1].Resolved)

	bids, err := store.ListBids(context.Background(), "room-1", 1)
	require.NoError(t, err)
	assert.Len(t, bids, 2)

	price := model.Catalog()[0].Price
	p0, _ := store.GetPlayer(context.Background(), "p0")
	p1, _ := store.GetPlayer(context.Background(), "p1")
	assert.Equal(t, int64(1000-300), p0.Capital)
	assert.Equal(t, int64(1000)+price-500, p1.Capital)
}

// Property: any number of concurrent triggers for a complete round run the
// resolver exactly once
func TestConcurrentTriggersResolveExactlyOnceProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		players := rapid.IntRange(1, 6).Draw(rt, "players")
		callers := rapid.IntRange(2, 24).Draw(rt, "callers")

		store := memory.New()
		seedRoom(rt, store, players)
		for i := range players {
			placeBid(rt, store, i, int64(10*i))
		}
		res := &countingResolver{}
		trg := trigger.New(store, res, testutil.NopLogger())

		var wg sync.WaitGroup
		var resolved atomic.Int32
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				out, err := trg.AfterBid(context.Background(), "room-1", 1)
				if err == nil && out.Resolved {
					resolved.Add(1)
				}
			}()
		}
		wg.Wait()

		if res.calls.Load() != 1 || resolved.Load() != 1 {
			rt.Fatalf("resolver ran %d times, %d callers resolved", res.calls.Load(), resolved.Load())
		}
	})
}
