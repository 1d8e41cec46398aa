package operation

import (
	"errors"
)

// ErrCanceled is matched by every error returned from a cancellation checkpoint.
var ErrCanceled = errors.New("operation canceled")

// CanceledError is returned by CheckIfCanceled when a pending cancel request
// is observed.
type CanceledError struct {
	Request CancelRequest
}

// Error implements the error interface.
func (e *CanceledError) Error() string {
	if e.Request.Reason == "" {
		return ErrCanceled.Error()
	}
	return ErrCanceled.Error() + ": " + e.Request.Reason
}

// Is reports whether target is ErrCanceled.
func (e *CanceledError) Is(target error) bool {
	return target == ErrCanceled
}
