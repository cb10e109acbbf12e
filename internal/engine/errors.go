package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an activity id is not in the collection.
	ErrNotFound = errors.New("activity not found")
	// ErrInvalidName is returned for an empty or overlong activity name.
	ErrInvalidName = errors.New("activity name must be between 1 and 200 characters")
	// ErrInvalidInterval is returned for a non-positive or absurd interval.
	ErrInvalidInterval = errors.New("interval must be between 1 and 36500 days")
)

const (
	maxNameLen      = 200
	maxIntervalDays = 36500
)

// PersistenceError wraps a store failure during a mutating operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SchedulingError reports a gateway failure. It is a warning: whatever was
// written to the ledger stays written.
type SchedulingError struct {
	ActivityID string
	Op         string
	Err        error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("reminder %s for %s: %v", e.Op, e.ActivityID, e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is or wraps a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
