package model

import "time"

// Session is a server-side record binding a bearer credential to one player
// in one room
type Session struct {
	ID        string
	PlayerID  PlayerID
	RoomID    RoomID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
