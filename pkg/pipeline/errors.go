package pipeline

import (
	"errors"
	"fmt"
)

// UserNotificationError reports a configuration mistake the user has to fix.
type UserNotificationError struct {
	Message string
	Err     error
}

func (e *UserNotificationError) Error() string {
	if e.Err == nil {
		return e.Message
	}

	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UserNotificationError) Unwrap() error {
	return e.Err
}

// NewUserNotificationError creates a user facing error caused by err, which may be nil.
func NewUserNotificationError(err error, format string, args ...any) *UserNotificationError {
	return &UserNotificationError{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsUserNotification checks if an error has to be shown to the user as is.
func IsUserNotification(err error) bool {
	var target *UserNotificationError

	return errors.As(err, &target)
}

// StageFailedError reports a stage that returned a non-zero status.
type StageFailedError struct {
	Group string
	Stage string
	Code  int
}

func (e *StageFailedError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("stage %s failed with status %d", e.Stage, e.Code)
	}

	return fmt.Sprintf("stage %s of group %s failed with status %d", e.Stage, e.Group, e.Code)
}
