package storage

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrSchemaAlreadyExists marks a bootstrap that found the table in place.
	ErrSchemaAlreadyExists = errors.New("schema already exists")
	// ErrConstraintViolation is returned when an insert reuses a transaction_id.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrStorage covers every other backend failure.
	ErrStorage = errors.New("storage error")
)

// Error is a failed gateway operation. Kind is one of the sentinels above and
// Err is the driver error.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func storageError(op string, err error) error {
	kind := ErrStorage
	switch {
	case isUniqueViolation(err):
		kind = ErrConstraintViolation
	case isTableExists(err):
		kind = ErrSchemaAlreadyExists
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isTableExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}
