package game

import (
	"errors"
	"fmt"
)

// Reasons an action is rejected. They are wrapped in *ActionError; use
// errors.Is to test for a specific reason.
var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrHandComplete      = errors.New("hand is complete")
	ErrUnknownSeat       = errors.New("seat is not in this hand")
	ErrUnknownAction     = errors.New("unknown action")
	ErrCannotCheck       = errors.New("cannot check facing a bet")
	ErrNothingToCall     = errors.New("nothing to call")
	ErrBetNotAllowed     = errors.New("cannot bet facing a bet, raise instead")
	ErrRaiseNotAllowed   = errors.New("raising is not allowed")
	ErrBetTooSmall       = errors.New("bet below the big blind")
	ErrRaiseTooSmall     = errors.New("raise below the minimum raise")
	ErrInsufficientChips = errors.New("not enough chips")
	ErrStaleAction       = errors.New("action is for a previous hand or street")
)

// ActionError reports an illegal action. The hand state is unchanged.
type ActionError struct {
	Seat   int
	Action Action
	Reason error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("seat %d %s: %v", e.Seat, e.Action, e.Reason)
}

func (e *ActionError) Unwrap() error { return e.Reason }

func illegal(seat int, a Action, reason error) error {
	return &ActionError{Seat: seat, Action: a, Reason: reason}
}

// InvariantError means the engine reached a state that should be impossible,
// such as an exhausted deck or chips not adding up. The hand is aborted and
// the table restores the starting stacks.
type InvariantError struct {
	HandID string
	Err    error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("hand %s invariant violated: %v", e.HandID, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }

// IsInvariant reports whether err is an invariant violation.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
