package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventPlayerJoined EventType = "player_joined"
	EventGameStarted  EventType = "game_started"
	EventBidPlaced    EventType = "bid_placed"
	EventRoundResult  EventType = "round_result"
	EventRoundStarted EventType = "round_started"
	EventGameOver     EventType = "game_over"
)

// Event is a room notification pushed to subscribers
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RoomID    RoomID    `json:"room_id"`
	Payload   any       `json:"payload"`
}

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	PlayerID    PlayerID `json:"player_id"`
	DisplayName string   `json:"display_name"`
	IsAI        bool     `json:"is_ai"`
}

// RoundStartedPayload contains data for game started and round started events
type RoundStartedPayload struct {
	Round     int  `json:"round"`
	MaxRounds int  `json:"max_rounds"`
	Item      Item `json:"item"`
}

// BidPlacedPayload announces that a player bid without revealing the amount
type BidPlacedPayload struct {
	PlayerID PlayerID `json:"player_id"`
	Round    int      `json:"round"`
}

// GameOverPayload contains the final standings
type GameOverPayload struct {
	Round    int        `json:"round"`
	Standing []PlayerID `json:"standing"`
}
