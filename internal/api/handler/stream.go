package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mcoot/bidwars/internal/api/middleware"
	"github.com/mcoot/bidwars/internal/stream"
)

// StreamHandler serves live room events
type StreamHandler struct {
	hubs     *stream.HubManager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hubs *stream.HubManager, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		hubs:     hubs,
		upgrader: stream.NewUpgrader(),
		logger:   logger.With(slog.String("component", "stream-handler")),
	}
}

// Events handles GET /api/v1/rooms/{code}/events
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	hub := h.hubs.GetOrCreateHub(session.RoomID)

	stream.ServeSSE(w, r, hub, session.PlayerID)
}

// WebSocket handles GET /api/v1/rooms/{code}/ws
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	hub := h.hubs.GetOrCreateHub(session.RoomID)

	stream.ServeWS(w, r, &h.upgrader, hub, session.PlayerID, h.logger)
}
