package request

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	PlayerName string `json:"player_name"`
	MaxRounds  int    `json:"max_rounds,omitempty"`
}

// JoinRoomRequest is the request body for joining a room
type JoinRoomRequest struct {
	PlayerName string `json:"player_name"`
}

// AddBotRequest is the request body for adding an AI player to a room
type AddBotRequest struct {
	Strategy string `json:"strategy,omitempty"`
}

// BidRequest is the request body for placing a bid. Round is optional and
// defaults to the room's current round.
type BidRequest struct {
	Amount *float64 `json:"amount"`
	Round  int      `json:"round,omitempty"`
}
