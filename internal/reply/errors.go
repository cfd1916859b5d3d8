package reply

import (
	"errors"
	"fmt"
)

// ErrMalformedReply is the sentinel behind every MalformedReplyError.
var ErrMalformedReply = errors.New("malformed reply")

// MalformedReplyError reports model output that fails strict validation.
type MalformedReplyError struct {
	Reason string
	Raw    string
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("malformed reply: %s", e.Reason)
}

func (e *MalformedReplyError) Unwrap() error {
	return ErrMalformedReply
}

func malformed(raw, format string, args ...any) *MalformedReplyError {
	return &MalformedReplyError{Reason: fmt.Sprintf(format, args...), Raw: raw}
}
