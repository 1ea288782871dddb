package room

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound           = errors.New("room not found")
	ErrMemberNotFound         = errors.New("member not found")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

// ValidationError reports malformed input. It is returned to the issuing
// connection only and never broadcast.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RejectedCommandError reports a semantically invalid state transition,
// e.g. seek before a video is selected. Room state is left untouched.
type RejectedCommandError struct {
	Command string
	Reason  string
}

func (e *RejectedCommandError) Error() string {
	return fmt.Sprintf("command %s rejected: %s", e.Command, e.Reason)
}
