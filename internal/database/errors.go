package database

import (
	"context"
	"database/sql/driver"
	"errors"
)

var (
	// ErrNotFound is returned when a subject does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint (roll number) is violated
	ErrDuplicate = errors.New("duplicate")
	// ErrTransient marks failures that may succeed when retried (lost connection, lock contention)
	ErrTransient = errors.New("transient storage error")
)

// IsTransient reports whether err is worth one retry
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, driver.ErrBadConn)
}
