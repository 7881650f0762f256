package database

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrInvalidRecord is returned for writes that would violate a row invariant.
	ErrInvalidRecord = stderrors.New("invalid record")

	// ErrTransient marks a failure that may succeed when retried.
	ErrTransient = stderrors.New("transient storage failure")

	// ErrPersistenceFatal marks a write abandoned after exhausting retries.
	ErrPersistenceFatal = stderrors.New("persistence failed")

	ErrNotFound = stderrors.New("not found")

	// ErrDuplicate is returned when a write collides with a unique name.
	ErrDuplicate = stderrors.New("already exists")
)

// PersistenceFatalError is returned once a transient failure has been retried
// the configured number of times.
type PersistenceFatalError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *PersistenceFatalError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *PersistenceFatalError) Unwrap() error {
	return e.Err
}

func (e *PersistenceFatalError) Is(target error) bool {
	return target == ErrPersistenceFatal
}

// IsTransient reports whether err is a busy or locked database condition.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrTransient) {
		return true
	}

	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}
