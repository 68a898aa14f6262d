package services

import (
	"errors"
	"fmt"
)

// Core error taxonomy. Handlers branch on these to pick HTTP statuses; none
// of them are retryable as-is.
var (
	// ErrInvalidTransition means the trade is not in a state compatible with
	// the requested action.
	ErrInvalidTransition = errors.New("action not valid from the trade's current state")

	// ErrInvalidProposal means the proposal violates policy (self-trade,
	// inactive listing, duplicate open trade, unverified kid).
	ErrInvalidProposal = errors.New("invalid trade proposal")

	// ErrAlreadyDecided means this side of the trade already has a recorded
	// parental decision.
	ErrAlreadyDecided = errors.New("this trade already has a decision recorded for your side")

	// ErrInsufficientPoints is matched via errors.Is against
	// *InsufficientPointsError, which carries the shortfall.
	ErrInsufficientPoints = errors.New("insufficient points")

	ErrUnauthorized = errors.New("not authorized for this action")

	ErrTradeNotFound        = errors.New("trade not found")
	ErrListingNotFound      = errors.New("listing not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrKidNotFound          = errors.New("kid record not found")
	ErrParentNotFound       = errors.New("parent record not found")
	ErrRequestNotFound      = errors.New("verification request not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrMessageNotFound      = errors.New("message not found")

	ErrEmailExists     = errors.New("email already registered")
	ErrInvalidPassword = errors.New("invalid password")
	ErrFeedbackExists  = errors.New("feedback already submitted for this trade")
	ErrAlreadyResolved = errors.New("verification request already resolved")
	ErrChatDisabled    = errors.New("chat is not available until the trade proposal is accepted for review")
	ErrInvalidCode     = errors.New("verification code is invalid or expired")

	// errStaleWrite is the stores' internal signal that a compare-and-set
	// write matched nothing; services re-read and map it to a user-facing
	// error.
	errStaleWrite = errors.New("conditional write matched no record")
)

// InsufficientPointsError reports how far short the balance fell.
type InsufficientPointsError struct {
	Balance  int
	Required int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: balance %d, required %d (short %d)",
		e.Balance, e.Required, e.Required-e.Balance)
}

func (e *InsufficientPointsError) Shortfall() int { return e.Required - e.Balance }

func (e *InsufficientPointsError) Is(target error) bool { return target == ErrInsufficientPoints }
