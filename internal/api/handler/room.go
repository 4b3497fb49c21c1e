package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bidwars/internal/api/middleware"
	"github.com/mcoot/bidwars/internal/api/request"
	"github.com/mcoot/bidwars/internal/api/response"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/bot"
	"github.com/mcoot/bidwars/internal/services/room"
)

// RoomHandler handles room membership endpoints
type RoomHandler struct {
	rooms *room.Controller
	bots  *bot.Service
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *room.Controller, bots *bot.Service) *RoomHandler {
	return &RoomHandler{rooms: rooms, bots: bots}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRoomRequest
	if err := decodeBody(r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	m, err := h.rooms.Create(r.Context(), req.PlayerName, req.MaxRounds)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.MembershipFromModel(m, []*model.Player{m.Player}))
}

// Join handles POST /api/v1/rooms/{code}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.JoinRoomRequest
	if err := decodeBody(r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	m, err := h.rooms.Join(r.Context(), model.RoomCode(mux.Vars(r)["code"]), req.PlayerName)
	if err != nil {
		WriteError(w, err)
		return
	}

	players, err := h.rooms.Players(r.Context(), m.Room.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MembershipFromModel(m, players))
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	rm := middleware.MustGetRoom(r.Context())

	players, err := h.rooms.Players(r.Context(), rm.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm, players))
}

// AddBot handles POST /api/v1/rooms/{code}/bots
func (h *RoomHandler) AddBot(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	rm := middleware.MustGetRoom(r.Context())

	var req request.AddBotRequest
	if err := decodeBody(r, &req, true); err != nil {
		WriteError(w, err)
		return
	}

	p, err := h.bots.AddBot(r.Context(), rm.ID, session.PlayerID, req.Strategy)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(p, rm.HostID))
}
