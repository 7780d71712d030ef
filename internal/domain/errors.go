package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrVehicleUnavailable = errors.New("vehicle unavailable")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidState       = errors.New("invalid state")
	ErrStorage            = errors.New("storage error")
)

// Error is a typed failure. errors.Is matches it against its Kind sentinel.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Expected reports whether the error is a normal business outcome rather
// than an infrastructure failure.
func (e *Error) Expected() bool { return e.Kind != ErrStorage }

func ValidationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func InvalidInputError(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func InvalidStateError(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(entity, id string) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func VehicleUnavailableError(vehicleID string) error {
	return &Error{Kind: ErrVehicleUnavailable, Message: fmt.Sprintf("vehicle %s is not available for the requested dates", vehicleID)}
}

func StorageError(op string, err error) error {
	return &Error{Kind: ErrStorage, Message: op, Err: err}
}

// TransitionError names both ends of a rejected status change.
type TransitionError struct {
	From RentalStatus
	To   RentalStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot transition from %s to %s", ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrIllegalTransition }

func (e *TransitionError) Expected() bool { return true }
