package bidding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mcoot/bidwars/internal/model"
)

func biddingRoom() *model.Room {
	return &model.Room{ID: "room-1", Phase: model.PhaseBidding, CurrentRound: 2, MaxRounds: 5}
}

func member(capital int64) *model.Player {
	return &model.Player{ID: "p1", RoomID: "room-1", Capital: capital}
}

func TestValidateClampsToCapital(t *testing.T) {
	amount, err := Validate(biddingRoom(), member(1000), Request{Amount: 5000})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), amount)
}

func TestValidateTruncatesFractions(t *testing.T) {
	amount, err := Validate(biddingRoom(), member(1000), Request{Amount: 250.99})
	require.NoError(t, err)
	assert.Equal(t, int64(250), amount)
}

func TestValidateAcceptsZero(t *testing.T) {
	amount, err := Validate(biddingRoom(), member(1000), Request{Amount: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(0), amount)
}

func TestValidateAcceptsMatchingRound(t *testing.T) {
	_, err := Validate(biddingRoom(), member(1000), Request{Amount: 10, Round: 2})
	assert.NoError(t, err)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		room    func(*model.Room)
		player  func(*model.Player)
		req     Request
		wantErr error
	}{
		{
			name:    "waiting room",
			room:    func(r *model.Room) { r.Phase = model.PhaseWaiting },
			req:     Request{Amount: 10},
			wantErr: model.ErrNotAcceptingBids,
		},
		{
			name:    "showing results",
			room:    func(r *model.Room) { r.Phase = model.PhaseResults },
			req:     Request{Amount: 10},
			wantErr: model.ErrNotAcceptingBids,
		},
		{
			name:    "game over",
			room:    func(r *model.Room) { r.Phase = model.PhaseGameOver },
			req:     Request{Amount: 10},
			wantErr: model.ErrNotAcceptingBids,
		},
		{
			name:    "other room",
			player:  func(p *model.Player) { p.RoomID = "room-2" },
			req:     Request{Amount: 10},
			wantErr: model.ErrNotInRoom,
		},
		{
			name:    "eliminated",
			player:  func(p *model.Player) { p.Eliminated = true },
			req:     Request{Amount: 10},
			wantErr: model.ErrPlayerEliminated,
		},
		{
			name:    "previous round",
			req:     Request{Amount: 10, Round: 1},
			wantErr: model.ErrStaleRound,
		},
		{
			name:    "negative",
			req:     Request{Amount: -1},
			wantErr: model.ErrInvalidBidAmount,
		},
		{
			name:    "NaN",
			req:     Request{Amount: math.NaN()},
			wantErr: model.ErrInvalidBidAmount,
		},
		{
			name:    "infinite",
			req:     Request{Amount: math.Inf(1)},
			wantErr: model.ErrInvalidBidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := biddingRoom()
			player := member(1000)
			if tt.room != nil {
				tt.room(room)
			}
			if tt.player != nil {
				tt.player(player)
			}

			_, err := Validate(room, player, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

// Property: an accepted amount is never negative, never above capital and
// never above the requested amount
func TestClampProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capital := rapid.Int64Range(-1000, 10_000_000).Draw(t, "capital")
		requested := rapid.Float64Range(0, 1e12).Draw(t, "requested")

		got := Clamp(requested, capital)

		if got < 0 {
			t.Fatalf("negative amount %d", got)
		}
		if capital > 0 && got > capital {
			t.Fatalf("amount %d above capital %d", got, capital)
		}
		if float64(got) > requested {
			t.Fatalf("amount %d above requested %f", got, requested)
		}
		if capital > 0 && requested >= float64(capital) && got != capital {
			t.Fatalf("amount %d, want full capital %d", got, capital)
		}
	})
}
