package sessions

import (
	"errors"
	"fmt"
)

var (
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionExpired  = errors.New("session expired")
)

type ErrorKind string

const (
	// ErrorNetwork covers autosave and submit failures. The session stays
	// usable and the operation can be retried.
	ErrorNetwork ErrorKind = "NETWORK"
	// ErrorPermission is returned when microphone access is denied. Voice
	// capture stays disabled for the rest of the session.
	ErrorPermission ErrorKind = "PERMISSION"
	// ErrorTranscription leaves the existing transcript untouched.
	ErrorTranscription ErrorKind = "TRANSCRIPTION"
	// ErrorStart is fatal to entering the session; no session is created.
	ErrorStart ErrorKind = "START"
)

type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("sessions: %s %s failed", e.Kind, e.Op)
	}
	return fmt.Sprintf("sessions: %s %s failed: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Recoverable reports whether the session can continue after the error.
func (e *Error) Recoverable() bool {
	return e != nil && e.Kind != ErrorStart
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err wraps a session error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var sessionErr *Error
	return errors.As(err, &sessionErr) && sessionErr.Kind == kind
}
