package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bidwars/internal/api/handler"
	"github.com/mcoot/bidwars/internal/api/middleware"
	"github.com/mcoot/bidwars/internal/api/response"
	"github.com/mcoot/bidwars/internal/services/auth"
	"github.com/mcoot/bidwars/internal/services/bot"
	"github.com/mcoot/bidwars/internal/services/game"
	"github.com/mcoot/bidwars/internal/services/room"
	"github.com/mcoot/bidwars/internal/stream"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	RoomController *room.Controller
	GameController *game.Controller
	BotService     *bot.Service
	HubManager     *stream.HubManager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.RoomController, cfg.BotService)
	gameHandler := handler.NewGameHandler(cfg.RoomController, cfg.GameController)
	streamHandler := handler.NewStreamHandler(cfg.HubManager, cfg.Logger)

	roomAuth := middleware.RoomAuth(cfg.AuthService, cfg.RoomController)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Tracing())

	// Creating and joining hand out the session token, so they are open
	api.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods(http.MethodPost)

	// Everything else needs a session for the room named in the path
	rooms := api.PathPrefix("/rooms/{code}").Subrouter()
	rooms.Use(roomAuth)
	rooms.HandleFunc("", roomHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/bots", roomHandler.AddBot).Methods(http.MethodPost)
	rooms.HandleFunc("/start", gameHandler.Start).Methods(http.MethodPost)
	rooms.HandleFunc("/bids", gameHandler.Bid).Methods(http.MethodPost)
	rooms.HandleFunc("/advance", gameHandler.Advance).Methods(http.MethodPost)
	rooms.HandleFunc("/results", gameHandler.Results).Methods(http.MethodGet)
	rooms.HandleFunc("/leaderboard", gameHandler.Leaderboard).Methods(http.MethodGet)
	rooms.HandleFunc("/events", streamHandler.Events).Methods(http.MethodGet)
	rooms.HandleFunc("/ws", streamHandler.WebSocket).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
