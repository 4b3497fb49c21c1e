package response

import (
	"time"

	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/game"
	"github.com/mcoot/bidwars/internal/services/room"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Capital     int64  `json:"capital"`
	Eliminated  bool   `json:"eliminated"`
	IsHost      bool   `json:"is_host"`
	IsAI        bool   `json:"is_ai,omitempty"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player, hostID model.PlayerID) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		Capital:     p.Capital,
		Eliminated:  p.Eliminated,
		IsHost:      p.ID == hostID,
		IsAI:        p.IsAI,
	}
}

// Room represents a room in API responses. Items for future rounds are
// never exposed.
type Room struct {
	ID                string      `json:"id"`
	Code              string      `json:"code"`
	Phase             string      `json:"phase"`
	HostID            string      `json:"host_id"`
	CurrentRound      int         `json:"current_round"`
	MaxRounds         int         `json:"max_rounds"`
	LastResolvedRound int         `json:"last_resolved_round"`
	CurrentItem       *model.Item `json:"current_item,omitempty"`
	Players           []Player    `json:"players,omitempty"`
}

// RoomFromModel converts a room and its players
func RoomFromModel(r *model.Room, players []*model.Player) Room {
	resp := Room{
		ID:                string(r.ID),
		Code:              string(r.Code),
		Phase:             string(r.Phase),
		HostID:            string(r.HostID),
		CurrentRound:      r.CurrentRound,
		MaxRounds:         r.MaxRounds,
		LastResolvedRound: r.LastResolvedRound,
	}
	if item, ok := r.CurrentItem(); ok {
		resp.CurrentItem = &item
	}
	for _, p := range players {
		resp.Players = append(resp.Players, PlayerFromModel(p, r.HostID))
	}
	return resp
}

// Membership is returned when a player creates or joins a room
type Membership struct {
	Room      Room      `json:"room"`
	Player    Player    `json:"player"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MembershipFromModel converts a room.Membership
func MembershipFromModel(m *room.Membership, players []*model.Player) Membership {
	return Membership{
		Room:      RoomFromModel(m.Room, players),
		Player:    PlayerFromModel(m.Player, m.Room.HostID),
		Token:     m.Token.Value,
		ExpiresAt: m.Token.Session.ExpiresAt,
	}
}

// Receipt is the response to an accepted bid
type Receipt struct {
	Round     int                `json:"round"`
	Amount    int64              `json:"amount"`
	AllBidsIn bool               `json:"all_bids_in"`
	Resolved  bool               `json:"resolved"`
	Result    *model.RoundResult `json:"result,omitempty"`
}

// ReceiptFromModel converts a game.Receipt
func ReceiptFromModel(r *game.Receipt) Receipt {
	return Receipt{
		Round:     r.Round,
		Amount:    r.Amount,
		AllBidsIn: r.AllBidsIn,
		Resolved:  r.Resolved,
		Result:    r.Result,
	}
}

// Results lists the resolved rounds of a room
type Results struct {
	Rounds []*model.RoundResult `json:"rounds"`
}

// Leaderboard lists a room's players in standing order
type Leaderboard struct {
	Players []Player `json:"players"`
}

// LeaderboardFromModel converts ranked players
func LeaderboardFromModel(r *model.Room, players []*model.Player) Leaderboard {
	resp := Leaderboard{Players: make([]Player, 0, len(players))}
	for _, p := range players {
		resp.Players = append(resp.Players, PlayerFromModel(p, r.HostID))
	}
	return resp
}

// Health is the response for the health check
type Health struct {
	Status string `json:"status"`
}
