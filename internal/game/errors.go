package game

import (
	"errors"
	"fmt"
)

// Validation failures. The action is rejected and nothing is spent.
var (
	ErrActionUsed     = errors.New("action already used this turn")
	ErrNoAmmo         = errors.New("out of ammo")
	ErrInsufficientAP = errors.New("not enough AP")
	ErrInsufficientTP = errors.New("not enough TP")
	ErrWrongTiming    = errors.New("opening action does not match the declared timing")
	ErrOutOfRange     = errors.New("target out of range or arc")
	ErrWrongPhase     = errors.New("not allowed in the current turn phase")
	ErrLocked         = errors.New("locked in melee")
	ErrUnknownAction  = errors.New("unknown action")
	ErrBlocked        = errors.New("destination unreachable")
	ErrUnknownEntity  = errors.New("unknown entity")
	ErrInvalidChoice  = errors.New("invalid choice")
)

// Flow errors.
var (
	ErrGameOver          = errors.New("game is over")
	ErrDecisionPending   = errors.New("a decision is pending")
	ErrNoPendingDecision = errors.New("no pending decision")
	ErrStageMismatch     = errors.New("resolution is not waiting for this decision")
)

// ValidationError carries a human readable reason next to the sentinel.
type ValidationError struct {
	Err    error
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return e.Err }

func reject(err error, format string, args ...any) error {
	return &ValidationError{Err: err, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a recoverable rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
