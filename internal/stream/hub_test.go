package stream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bidwars/internal/testutil"
)

func TestFormatSSE(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		data     string
		expected string
	}{
		{
			name:     "single line data",
			event:    "round_result",
			data:     `{"round":1}`,
			expected: "event: round_result\ndata: {\"round\":1}\n\n",
		},
		{
			name:     "multi-line data",
			event:    "player_joined",
			data:     "{\n  \"a\": 1\n}",
			expected: "event: player_joined\ndata: {\ndata:   \"a\": 1\ndata: }\n\n",
		},
		{
			name:     "empty data",
			event:    "ping",
			data:     "",
			expected: "event: ping\ndata: \n\n",
		},
		{
			name:     "data with carriage returns",
			event:    "test",
			data:     "line1\r\nline2",
			expected: "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSE(tt.event, []byte(tt.data))))
		})
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, time.Second, 5*time.Millisecond)
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub := NewHub("room-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	a := NewClient(hub, "p1", "sse")
	b := NewClient(hub, "p2", "websocket")
	hub.Register(a)
	hub.Register(b)
	waitForClients(t, hub, 2)

	hub.Broadcast(Message{Event: "round_result", Data: json.RawMessage(`{}`)})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			assert.Equal(t, "round_result", msg.Event)
		case <-time.After(time.Second):
			t.Fatalf("client %s got no message", c.playerID)
		}
	}
}

func TestHubDropsForFullClient(t *testing.T) {
	hub := NewHub("room-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	slow := NewClient(hub, "p1", "sse")
	hub.Register(slow)
	waitForClients(t, hub, 1)

	for range sendBufferSize + 10 {
		hub.Broadcast(Message{Event: "bid_placed"})
	}

	// The hub keeps running and the client holds at most a full buffer
	require.Eventually(t, func() bool { return len(slow.send) == sendBufferSize }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHubUnregisterClosesClient(t *testing.T) {
	hub := NewHub("room-1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	c := NewClient(hub, "p1", "sse")
	hub.Register(c)
	waitForClients(t, hub, 1)
	hub.Unregister(c)

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub("room-1", testutil.NopLogger())
	go hub.Run()

	c := NewClient(hub, "p1", "sse")
	hub.Register(c)
	waitForClients(t, hub, 1)

	hub.Close()
	hub.Close()

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client channel not closed")
	}

	// Late registrations and unregistrations must not block
	late := NewClient(hub, "p2", "sse")
	hub.Register(late)
	hub.Unregister(late)
	_, ok := <-late.send
	assert.False(t, ok)
}

func TestHubManager(t *testing.T) {
	m := NewHubManager(testutil.NopLogger())
	defer m.Close()

	assert.Nil(t, m.GetHub("room-1"))

	hub := m.GetOrCreateHub("room-1")
	assert.Same(t, hub, m.GetOrCreateHub("room-1"))
	assert.Same(t, hub, m.GetHub("room-1"))

	m.CleanupEmptyHubs()
	assert.Nil(t, m.GetHub("room-1"))

	m.GetOrCreateHub("room-2")
	m.RemoveHub("room-2")
	assert.Nil(t, m.GetHub("room-2"))
}
