package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so callers can
// branch on the kind with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage error")
)

// kindError is a domain error that belongs to one error kind
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	// Room errors
	ErrRoomNotFound        = newError(ErrNotFound, "room not found")
	ErrRoomFull            = newError(ErrValidation, "room is full")
	ErrGameAlreadyStarted  = newError(ErrValidation, "game has already started")
	ErrInsufficientPlayers = newError(ErrValidation, "insufficient players to start game")
	ErrInvalidMaxRounds    = newError(ErrValidation, "invalid max rounds")
	ErrInvalidPlayerName   = newError(ErrValidation, "invalid player name")
	ErrInvalidPhase        = newError(ErrValidation, "action not allowed in current phase")
	ErrGameOver            = newError(ErrValidation, "game is over")
	ErrNotHost             = newError(ErrUnauthorized, "player is not the host")
	ErrUnknownBotStrategy  = newError(ErrValidation, "unknown bot strategy")

	// Player errors
	ErrPlayerNotFound   = newError(ErrNotFound, "player not found")
	ErrNotInRoom        = newError(ErrValidation, "player is not in room")
	ErrPlayerEliminated = newError(ErrValidation, "player is eliminated")

	// Bid errors
	ErrNotAcceptingBids = newError(ErrValidation, "room is not accepting bids")
	ErrDuplicateBid     = newError(ErrValidation, "already bid this round")
	ErrInvalidBidAmount = newError(ErrValidation, "bid amount must be a finite non-negative number")
	ErrStaleRound       = newError(ErrValidation, "bid is for a round that is not open")

	// Resolution errors
	ErrRoundMismatch   = newError(ErrValidation, "round is not the active round")
	ErrRoundInProgress = newError(ErrValidation, "round is being resolved")

	// Session errors
	ErrSessionNotFound = newError(ErrUnauthorized, "invalid or expired session")
	ErrSessionMismatch = newError(ErrUnauthorized, "session does not belong to this room")
)

// StorageFailure wraps a backing store failure so it classifies as ErrStorage
// while keeping the driver error in the chain.
func StorageFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
