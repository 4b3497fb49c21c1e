package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is a participant in exactly one room
type Player struct {
	ID          PlayerID
	RoomID      RoomID
	DisplayName string
	Capital     int64 // may be <= 0 once eliminated
	Eliminated  bool
	IsAI        bool
	BotStrategy string // empty for humans
	JoinedAt    time.Time
}

// Active reports whether the player still takes part in rounds
func (p *Player) Active() bool {
	return !p.Eliminated
}

// PlayerUpdate carries the player fields to overwrite. Nil fields are left
// unchanged. Eliminated can only ever be set to true.
type PlayerUpdate struct {
	Capital    *int64
	Eliminated *bool
}

// CountActive returns the number of non-eliminated players
func CountActive(players []*Player) int {
	n := 0
	for _, p := range players {
		if p.Active() {
			n++
		}
	}
	return n
}
