package stream

import (
	"bytes"
	"net/http"
	"time"

	"github.com/mcoot/bidwars/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

// Client is one connected subscriber
type Client struct {
	hub         *Hub
	playerID    model.PlayerID
	transport   string
	send        chan Message
	connectedAt time.Time
}

// NewClient creates a new client for a hub
func NewClient(hub *Hub, playerID model.PlayerID, transport string) *Client {
	return &Client{
		hub:         hub,
		playerID:    playerID,
		transport:   transport,
		send:        make(chan Message, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// Messages returns the channel of messages queued for the client. It is
// closed when the client is unregistered or the hub shuts down.
func (c *Client) Messages() <-chan Message {
	return c.send
}

// ServeSSE streams the hub's messages to the response as server-sent events
// until the client disconnects or the hub closes
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, playerID model.PlayerID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(hub, playerID, "sse")
	hub.Register(client)
	defer hub.Unregister(client)

	_, _ = w.Write(formatSSE("connected", []byte(`{"status":"connected"}`)))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(formatSSE(message.Event, message.Data)); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// formatSSE frames an event. Each line of data gets its own "data: " prefix.
func formatSSE(event string, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(event)
	buf.WriteByte('\n')
	data = bytes.ReplaceAll(data, []byte("\r"), nil)
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}
