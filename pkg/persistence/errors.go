// Package persistence provides standardized error types for run record storage.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecordID indicates an id that cannot name a run record.
	ErrInvalidRecordID = errors.New("invalid run record id")

	// ErrRecordCorrupt indicates a stored record that could not be decoded.
	ErrRecordCorrupt = errors.New("run record is corrupt")
)

// RecordError wraps run record errors with the operation and id involved.
type RecordError struct {
	Op  string // Operation being performed (e.g., "Load", "Save")
	ID  string // Runnable id
	Err error  // Underlying error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for run record %q: %v", e.Op, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRecordError creates a new record error with context.
func NewRecordError(op, id string, err error) *RecordError {
	return &RecordError{
		Op:  op,
		ID:  id,
		Err: err,
	}
}

// IsRecordCorrupt checks if an error indicates an undecodable record.
func IsRecordCorrupt(err error) bool {
	return errors.Is(err, ErrRecordCorrupt)
}

// IsInvalidRecordID checks if an error indicates an unusable record id.
func IsInvalidRecordID(err error) bool {
	return errors.Is(err, ErrInvalidRecordID)
}
