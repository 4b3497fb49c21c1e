package stream

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/bidwars/internal/dependencies/clock"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/storage"
)

// Broadcaster turns room events and round results into hub messages
type Broadcaster struct {
	hubManager *HubManager
	clock      clock.Clock
	logger     *slog.Logger
}

var (
	_ storage.Publisher      = (*Broadcaster)(nil)
	_ storage.EventPublisher = (*Broadcaster)(nil)
)

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, clk clock.Clock, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		clock:      clk,
		logger:     logger.With(slog.String("component", "stream-broadcaster")),
	}
}

// PublishRoundResult pushes a resolved round to the room's subscribers. It
// only fails if the result cannot be encoded.
func (b *Broadcaster) PublishRoundResult(ctx context.Context, roomID model.RoomID, result *model.RoundResult) error {
	return b.send(&model.Event{
		Type:      model.EventRoundResult,
		Timestamp: b.clock.Now(),
		RoomID:    roomID,
		Payload:   result,
	})
}

// PublishEvent pushes a room event to the room's subscribers
func (b *Broadcaster) PublishEvent(ctx context.Context, event *model.Event) {
	if err := b.send(event); err != nil {
		b.logger.Error("failed to encode room event",
			slog.String("room_id", string(event.RoomID)),
			slog.String("event", string(event.Type)),
			slog.String("error", err.Error()))
	}
}

func (b *Broadcaster) send(event *model.Event) error {
	hub := b.hubManager.GetHub(event.RoomID)
	if hub == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	hub.Broadcast(Message{Event: string(event.Type), Data: data})
	return nil
}
