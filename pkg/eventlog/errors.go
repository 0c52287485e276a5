package eventlog

import (
	"errors"
	"fmt"
)

// Common errors returned by the event store.
var (
	// ErrLockTimeout indicates the session lock was not acquired within the
	// configured timeout. Transient; callers may retry with backoff.
	ErrLockTimeout = errors.New("session lock timeout")

	// ErrSequenceConflict indicates an append tried to use a sequence number
	// that is not the next unused one for the session.
	ErrSequenceConflict = errors.New("sequence conflict")

	// ErrSessionMismatch indicates an event addressed to a different session
	// than the one the store is bound to.
	ErrSessionMismatch = errors.New("session mismatch")
)

// SequenceConflictError provides details about a sequence conflict.
type SequenceConflictError struct {
	SessionID string
	Expected  uint64
	Got       uint64
}

func (e *SequenceConflictError) Error() string {
	return fmt.Sprintf("sequence conflict for session %s: expected %d, got %d", e.SessionID, e.Expected, e.Got)
}

func (e *SequenceConflictError) Unwrap() error {
	return ErrSequenceConflict
}
