package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintReceiptText(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput("text", &buf)

	out.Print(Receipt{
		Round:    2,
		Amount:   300,
		Resolved: true,
		Result: &RoundResult{
			Round:      2,
			Item:       Item{Name: "Lamp", Emoji: "💡", Price: 1000},
			WinnerName: "Alice",
			WinnerBid:  300,
			WinnerGain: 700,
			Bids: []BidEntry{
				{PlayerName: "Alice", Amount: 300},
				{PlayerName: "Bob", Amount: 1000},
			},
			Eliminated: []string{"Bob"},
		},
	})

	text := buf.String()
	assert.Contains(t, text, "Bid 300 accepted for round 2")
	assert.Contains(t, text, "Round 2: 💡 Lamp (worth 1000)")
	assert.Contains(t, text, "Winner: Alice with 300 (gain +700)")
	assert.Contains(t, text, "Eliminated: Bob")
	assert.NotContains(t, text, "Game over")
}

func TestPrintLeaderboardText(t *testing.T) {
	var buf bytes.Buffer
	NewOutput("text", &buf).Print(Leaderboard{Players: []Player{
		{DisplayName: "Alice", Capital: 1700, IsHost: true},
		{DisplayName: "CyberVoid", Capital: 0, IsAI: true, Eliminated: true},
	}})

	assert.Equal(t, "1. Alice: 1700 [host]\n2. CyberVoid: 0 [bot, eliminated]\n", buf.String())
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	NewOutput("json", &buf).PrintMessage("done")
	assert.JSONEq(t, `{"message":"done"}`, buf.String())
}

func TestReadSSE(t *testing.T) {
	stream := strings.Join([]string{
		"event: connected",
		`data: {"status":"connected"}`,
		"",
		": keepalive",
		"",
		"event: round_result",
		`data: {"round":1}`,
		"",
		"event: game_over",
		"data: {}",
		"",
	}, "\n")

	var events []SSEEvent
	err := readSSE(strings.NewReader(stream), func(evt SSEEvent) bool {
		events = append(events, evt)
		return evt.Event != "round_result"
	})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "connected", events[0].Event)
	assert.Equal(t, "round_result", events[1].Event)
	assert.Equal(t, `{"round":1}`, events[1].Data)
}
