package model

import "time"

// RoomID uniquely identifies a room
type RoomID string

// RoomCode is the short human-readable code players use to join a room
type RoomCode string

// Phase is the state of a room's game session
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseBidding  Phase = "bidding"
	PhaseResults  Phase = "results"
	PhaseGameOver Phase = "game_over"
)

// phaseTransitions lists the legal next phases for each phase.
// game_over is terminal.
var phaseTransitions = map[Phase][]Phase{
	PhaseWaiting: {PhaseBidding},
	PhaseBidding: {PhaseResults, PhaseGameOver},
	PhaseResults: {PhaseBidding, PhaseGameOver},
}

// CanTransitionTo reports whether moving from p to next is legal
func (p Phase) CanTransitionTo(next Phase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Room is one game session among a fixed set of players
type Room struct {
	ID           RoomID
	Code         RoomCode
	Phase        Phase
	HostID       PlayerID
	CurrentRound int
	MaxRounds    int
	Items        []Item // ordered draw for the session, empty until started

	// LastResolvedRound is the resolution claim marker. It is only ever
	// written through Storage.ClaimResolution.
	LastResolvedRound int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsHost reports whether the player hosts the room
func (r *Room) IsHost(id PlayerID) bool {
	return r.HostID == id
}

// ItemForRound returns the item drawn for a 1-based round number
func (r *Room) ItemForRound(round int) (Item, bool) {
	if round < 1 || round > len(r.Items) {
		return Item{}, false
	}
	return r.Items[round-1], true
}

// CurrentItem returns the item for the current round, if any
func (r *Room) CurrentItem() (Item, bool) {
	return r.ItemForRound(r.CurrentRound)
}

// RoomUpdate carries the room fields to overwrite. Nil fields are left
// unchanged. The resolution marker is deliberately absent.
type RoomUpdate struct {
	Phase        *Phase
	CurrentRound *int
	Items        []Item
}

// PhaseUpdate is shorthand for a RoomUpdate touching only the phase
func PhaseUpdate(p Phase) RoomUpdate {
	return RoomUpdate{Phase: &p}
}
