package controller

import (
	"errors"
	"fmt"
)

// ErrNoResponse is matched by every *NoResponseError.
var ErrNoResponse = errors.New("no response")

// NoResponseError reports a turn that ended without reaching DONE.
type NoResponseError struct {
	State  State
	Reason string
}

func (e *NoResponseError) Error() string {
	return fmt.Sprintf("no response: stopped in %s: %s", e.State, e.Reason)
}

func (e *NoResponseError) Unwrap() error { return ErrNoResponse }
