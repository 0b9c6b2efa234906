package roomview

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is; Retryable reports on ErrConnectionFailed.
var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrPublishFailed    = errors.New("no data track published, chat sending disabled")
	ErrNotConnected     = errors.New("not connected to a room")
)

// RoomError is a controller failure tied to the operation that caused it.
type RoomError struct {
	Op      string
	Err     error
	Details string
}

func (e *RoomError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RoomError) Unwrap() error {
	return e.Err
}

// NewError ties err to the operation op.
func NewError(op string, err error) *RoomError {
	return &RoomError{Op: op, Err: err}
}

// WrapError is NewError with extra context, such as the track involved.
func WrapError(op string, err error, details string) *RoomError {
	return &RoomError{Op: op, Err: err, Details: details}
}

// Retryable reports whether err should be offered to the user with a retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}
