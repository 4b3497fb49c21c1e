package redis

import (
	"fmt"

	"github.com/mcoot/bidwars/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "bidwars"

// roomKey returns the key of the room hash
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// roomCodeKey returns the key of the room code -> room id index
func roomCodeKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:idx:room_code:%s", keyPrefix, code)
}

// roomPlayersKey returns the key of the LIST of player ids in join order
func roomPlayersKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s:players", keyPrefix, id)
}

// playerKey returns the key of the player hash
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// bidsKey returns the key of the HASH player id -> bid for one round
func bidsKey(roomID model.RoomID, round int) string {
	return fmt.Sprintf("%s:room:%s:bids:%d", keyPrefix, roomID, round)
}

// bidOrderKey returns the key of the LIST recording bid submission order
func bidOrderKey(roomID model.RoomID, round int) string {
	return fmt.Sprintf("%s:room:%s:bid_order:%d", keyPrefix, roomID, round)
}

// sessionKey returns the key of a session record
func sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// roundResultsChannel is the pub/sub channel carrying round results
func roundResultsChannel() string {
	return fmt.Sprintf("%s:round_results", keyPrefix)
}
