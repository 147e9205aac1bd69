package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrState      = errors.New("invalid state")
	ErrExpired    = errors.New("payment window expired")
)

// Conflict reasons surfaced to staff when fulfillment is refused.
const (
	ReasonTypeMismatch       = "vehicle type mismatch"
	ReasonStationMismatch    = "station mismatch"
	ReasonVehicleUnavailable = "vehicle unavailable"
	ReasonContractExists     = "contract exists"
	ReasonMissingDocument    = "missing identity document"
	ReasonVehicleBusy        = "vehicle is being processed"
	ReasonNoVehicle          = "no vehicle available"
)

// Error carries a user-readable reason and unwraps to one of the sentinel
// kinds above, so callers can branch with errors.Is.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NewValidationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Reason: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Reason: fmt.Sprintf(format, args...)}
}

func NewConflictError(reason string) error {
	return &Error{Kind: ErrConflict, Reason: reason}
}

func NewStateError(format string, args ...any) error {
	return &Error{Kind: ErrState, Reason: fmt.Sprintf(format, args...)}
}

func NewExpiredError(format string, args ...any) error {
	return &Error{Kind: ErrExpired, Reason: fmt.Sprintf(format, args...)}
}

// ReasonOf returns the user-readable reason of a domain error, or the plain
// error text otherwise.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return err.Error()
}
