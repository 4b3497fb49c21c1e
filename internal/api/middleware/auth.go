package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/bidwars/internal/api/apierr"
	"github.com/mcoot/bidwars/internal/model"
	"github.com/mcoot/bidwars/internal/services/auth"
	"github.com/mcoot/bidwars/internal/services/room"
)

type contextKey string

const (
	roomContextKey    contextKey = "room"
	sessionContextKey contextKey = "session"
)

// RoomAuth resolves the {code} route variable to a room and requires a
// session token issued for that room
func RoomAuth(authService *auth.Service, rooms *room.Controller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			rm, err := rooms.GetByCode(r.Context(), model.RoomCode(mux.Vars(r)["code"]))
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			session, err := authService.Authorize(r.Context(), token, rm.ID)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, roomContextKey, rm)
			ctx = context.WithValue(ctx, sessionContextKey, session)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the session token from the request. Browsers cannot
// set headers on WebSocket and EventSource requests, so a token query
// parameter is accepted as well.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	cookie, err := r.Cookie("session")
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetRoom returns the room resolved by RoomAuth
func GetRoom(ctx context.Context) *model.Room {
	rm, _ := ctx.Value(roomContextKey).(*model.Room)
	return rm
}

// GetSession returns the session from the request context
func GetSession(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

// MustGetSession returns the authenticated session or panics
func MustGetSession(ctx context.Context) *model.Session {
	session := GetSession(ctx)
	if session == nil {
		panic("no session in context - auth middleware not applied?")
	}
	return session
}

// MustGetRoom returns the resolved room or panics
func MustGetRoom(ctx context.Context) *model.Room {
	rm := GetRoom(ctx)
	if rm == nil {
		panic("no room in context - auth middleware not applied?")
	}
	return rm
}
