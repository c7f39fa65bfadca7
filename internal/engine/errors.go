package engine

import (
	"errors"
	"fmt"
)

// ErrNotFitted is returned by Recommend before the first successful Fit.
var ErrNotFitted = errors.New("engine: no fitted snapshot installed")

// DataError marks malformed or empty fit input. A fit that fails with a
// DataError leaves the previously installed snapshot untouched.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("invalid input data: %s", e.Reason)
}

func dataErrorf(format string, args ...interface{}) *DataError {
	return &DataError{Reason: fmt.Sprintf(format, args...)}
}

// UnknownUserError marks a recommendation request for a user id that is
// absent from the user table entirely. Cold-start users (registered but
// without qualifying history) are not errors and are handled by the
// popularity fallback instead.
type UnknownUserError struct {
	UserID int64
}

func (e *UnknownUserError) Error() string {
	return fmt.Sprintf("unknown user %d", e.UserID)
}
