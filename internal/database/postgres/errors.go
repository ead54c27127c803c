package postgres

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/lib/pq"
)

// PostgreSQL error codes mapped onto database errors.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeAdminShutdown        = "57P01"
	classConnectionException = "08"
)

// classify wraps err with the matching database sentinel so callers can use errors.Is.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == codeUniqueViolation:
			return fmt.Errorf("%w: %w", database.ErrDuplicate, err)
		case pqErr.Code == codeForeignKeyViolation:
			return fmt.Errorf("%w: %w", database.ErrNotFound, err)
		case pqErr.Code == codeSerializationFailure,
			pqErr.Code == codeDeadlockDetected,
			pqErr.Code == codeAdminShutdown,
			pqErr.Code.Class() == classConnectionException:
			return fmt.Errorf("%w: %w", database.ErrTransient, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %w", database.ErrTransient, err)
	}
	return err
}
