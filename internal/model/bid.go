package model

import "time"

// Bid is a player's offer for the item of one round. At most one bid exists
// per (room, player, round); bids are never mutated.
type Bid struct {
	RoomID    RoomID
	PlayerID  PlayerID
	Round     int
	Amount    int64
	CreatedAt time.Time
}

// BidEntry is one line of a round result, ordered by amount
type BidEntry struct {
	PlayerID   PlayerID `json:"player_id"`
	PlayerName string   `json:"player_name"`
	Amount     int64    `json:"amount"`
}

// RoundResult is the derived outcome of one resolved round
type RoundResult struct {
	RoomID     RoomID     `json:"room_id"`
	Round      int        `json:"round"`
	Item       Item       `json:"item"`
	WinnerID   PlayerID   `json:"winner_id"`
	WinnerName string     `json:"winner_name"`
	WinnerBid  int64      `json:"winner_bid"`
	WinnerGain int64      `json:"winner_gain"`
	Bids       []BidEntry `json:"bids"`
	Eliminated []string   `json:"eliminated"`
	GameOver   bool       `json:"game_over"`
}
