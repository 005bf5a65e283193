package session

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the store and the game packages
// wraps exactly one of these.
var (
	ErrValidation   = errors.New("invalid input")
	ErrPrecondition = errors.New("precondition not met")
	ErrConflict     = errors.New("conflicting update")
	ErrNotFound     = errors.New("not found")
	ErrTransport    = errors.New("session store unavailable")
	ErrPartialWrite = errors.New("partial write")
)

var (
	ErrInvalidTransition  = fmt.Errorf("%w: invalid transition", ErrPrecondition)
	ErrNoPlayers          = fmt.Errorf("%w: no players have joined", ErrPrecondition)
	ErrNotAllAnswered     = fmt.Errorf("%w: not every player has answered", ErrPrecondition)
	ErrAlreadyAnswered    = fmt.Errorf("%w: already answered this round", ErrPrecondition)
	ErrStaleRound         = fmt.Errorf("%w: answer is not for the current round", ErrPrecondition)
	ErrGameAlreadyStarted = fmt.Errorf("%w: game has already started", ErrPrecondition)
	ErrNotHost            = fmt.Errorf("%w: only the host can do that", ErrPrecondition)
	ErrAnswerExists       = fmt.Errorf("%w: answer already recorded", ErrConflict)
	ErrCodeTaken          = fmt.Errorf("%w: join code already in use", ErrConflict)
	ErrSubscriptionClosed = fmt.Errorf("%w: subscription closed", ErrTransport)
)

// Message returns the user-facing text for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPrecondition):
		return err.Error()
	case errors.Is(err, ErrNotFound):
		return "game not found"
	case errors.Is(err, ErrConflict):
		return "the game changed while saving, please refresh and try again"
	case errors.Is(err, ErrPartialWrite):
		return "your change was only partly saved, please try again"
	case errors.Is(err, ErrTransport):
		return "connection to the game server failed, retrying"
	default:
		return "something went wrong"
	}
}
