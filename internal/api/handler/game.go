package handler

import (
	"net/http"

	"github.com/mcoot/bidwars/internal/api/middleware"
	"github.com/mcoot/bidwars/internal/api/request"
	"github.com/mcoot/bidwars/internal/api/response"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/game"
	"github.com/mcoot/bidwars/internal/services/room"
)

// GameHandler handles game session endpoints
type GameHandler struct {
	rooms *room.Controller
	games *game.Controller
}

// NewGameHandler creates a new game handler
func NewGameHandler(rooms *room.Controller, games *game.Controller) *GameHandler {
	return &GameHandler{rooms: rooms, games: games}
}

// Start handles POST /api/v1/rooms/{code}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	rm, err := h.games.Start(r.Context(), session.RoomID, session.PlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.writeRoom(w, r, rm)
}

// Bid handles POST /api/v1/rooms/{code}/bids
func (h *GameHandler) Bid(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	var req request.BidRequest
	if err := decodeBody(r, &req, false); err != nil {
		WriteError(w, err)
		return
	}
	if req.Amount == nil {
		WriteError(w, NewInvalidRequestError("amount is required"))
		return
	}

	receipt, err := h.games.SubmitBid(r.Context(), session.RoomID, session.PlayerID, *req.Amount, req.Round)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.ReceiptFromModel(receipt))
}

// Advance handles POST /api/v1/rooms/{code}/advance
func (h *GameHandler) Advance(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	rm, err := h.games.AdvanceRound(r.Context(), session.RoomID, session.PlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.writeRoom(w, r, rm)
}

// Results handles GET /api/v1/rooms/{code}/results
func (h *GameHandler) Results(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	rounds, err := h.games.History(r.Context(), rm.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if rounds == nil {
		rounds = []*model.RoundResult{}
	}

	response.JSON(w, http.StatusOK, response.Results{Rounds: rounds})
}

// Leaderboard handles GET /api/v1/rooms/{code}/leaderboard
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	players, err := h.games.Leaderboard(r.Context(), rm.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(rm, players))
}

func (h *GameHandler) writeRoom(w http.ResponseWriter, r *http.Request, rm *model.Room) {
	players, err := h.rooms.Players(r.Context(), rm.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomFromModel(rm, players))
}
