package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/bidwars/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeValidation          = "VALIDATION_FAILED"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeRoomFull            = "ROOM_FULL"
	CodeGameAlreadyStarted  = "GAME_ALREADY_STARTED"
	CodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	CodeInvalidPhase        = "INVALID_PHASE"
	CodeGameOver            = "GAME_OVER"
	CodeNotHost             = "NOT_HOST"
	CodeSessionMismatch     = "SESSION_MISMATCH"
	CodePlayerEliminated    = "PLAYER_ELIMINATED"
	CodeNotAcceptingBids    = "NOT_ACCEPTING_BIDS"
	CodeDuplicateBid        = "DUPLICATE_BID"
	CodeInvalidBidAmount    = "INVALID_BID_AMOUNT"
	CodeStaleRound          = "STALE_ROUND"
	CodeRoundInProgress     = "ROUND_IN_PROGRESS"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// specific errors whose status or code differs from their kind's default.
// Checked in order before falling back to the kind.
var specific = []struct {
	err    error
	status int
	code   string
}{
	{model.ErrRoomNotFound, http.StatusNotFound, CodeRoomNotFound},
	{model.ErrPlayerNotFound, http.StatusNotFound, CodePlayerNotFound},
	{model.ErrRoomFull, http.StatusConflict, CodeRoomFull},
	{model.ErrGameAlreadyStarted, http.StatusConflict, CodeGameAlreadyStarted},
	{model.ErrInsufficientPlayers, http.StatusConflict, CodeInsufficientPlayers},
	{model.ErrInvalidPhase, http.StatusConflict, CodeInvalidPhase},
	{model.ErrGameOver, http.StatusConflict, CodeGameOver},
	{model.ErrPlayerEliminated, http.StatusConflict, CodePlayerEliminated},
	{model.ErrNotAcceptingBids, http.StatusConflict, CodeNotAcceptingBids},
	{model.ErrDuplicateBid, http.StatusConflict, CodeDuplicateBid},
	{model.ErrStaleRound, http.StatusConflict, CodeStaleRound},
	{model.ErrRoundMismatch, http.StatusConflict, CodeStaleRound},
	{model.ErrRoundInProgress, http.StatusConflict, CodeRoundInProgress},
	{model.ErrInvalidBidAmount, http.StatusBadRequest, CodeInvalidBidAmount},
	{model.ErrNotHost, http.StatusForbidden, CodeNotHost},
	{model.ErrSessionMismatch, http.StatusForbidden, CodeSessionMismatch},
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError. Storage failures and
// unknown errors never leak their message.
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	if errors.Is(err, model.ErrStorage) {
		return internal()
	}

	for _, s := range specific {
		if errors.Is(err, s.err) {
			return &httpError{s.status, APIError{s.code, s.err.Error()}}
		}
	}

	switch {
	case errors.Is(err, model.ErrValidation):
		return &httpError{http.StatusBadRequest, APIError{CodeValidation, err.Error()}}
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, err.Error()}}
	case errors.Is(err, model.ErrUnauthorized):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, err.Error()}}
	default:
		return internal()
	}
}

func internal() *httpError {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return internal()
}
