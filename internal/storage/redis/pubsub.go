package redis

import (
	"context"
	"encoding/json"

	"github.com/mcoot/bidwars/internal/model"
)

type roundResultMessage struct {
	RoomID model.RoomID       `json:"room_id"`
	Result *model.RoundResult `json:"result"`
}

// PublishRoundResult fans a resolved round out to every server instance
// subscribed to the round results channel
func (s *Storage) PublishRoundResult(ctx context.Context, roomID model.RoomID, result *model.RoundResult) error {
	data, err := json.Marshal(roundResultMessage{RoomID: roomID, Result: result})
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, roundResultsChannel(), data).Err(); err != nil {
		return model.StorageFailure("publish round result", err)
	}
	return nil
}

// SubscribeRoundResults calls fn for every round result published by any
// instance. It blocks until ctx is cancelled or the subscription fails.
// Malformed messages are skipped.
func (s *Storage) SubscribeRoundResults(ctx context.Context, fn func(model.RoomID, *model.RoundResult)) error {
	sub := s.client.Subscribe(ctx, roundResultsChannel())
	defer sub.Close()

	// Wait for the subscription to be confirmed before consuming
	if _, err := sub.Receive(ctx); err != nil {
		return model.StorageFailure("subscribe round results", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m roundResultMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil || m.Result == nil {
				continue
			}
			fn(m.RoomID, m.Result)
		}
	}
}
