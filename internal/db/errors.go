package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Common database errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrForeignKeyConstraint = errors.New("foreign key constraint violation")
	ErrUniqueConstraint     = errors.New("unique constraint violation")
	ErrInvalidInput         = errors.New("invalid input")
)

// DatabaseError wraps a driver error with the operation that produced it.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// Classify maps driver errors from either backend onto the sentinels above so
// callers never have to inspect pgconn or sqlite types.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &DatabaseError{Op: op, Err: ErrNotFound}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return &DatabaseError{Op: op, Err: fmt.Errorf("%w: %s", ErrForeignKeyConstraint, pgErr.ConstraintName)}
		case "23505": // unique_violation
			return &DatabaseError{Op: op, Err: fmt.Errorf("%w: %s", ErrUniqueConstraint, pgErr.ConstraintName)}
		case "22P02", "22003", "23502": // invalid_text_representation, numeric_value_out_of_range, not_null_violation
			return &DatabaseError{Op: op, Err: fmt.Errorf("%w: %s", ErrInvalidInput, pgErr.Message)}
		}
		return &DatabaseError{Op: op, Err: err}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return &DatabaseError{Op: op, Err: fmt.Errorf("%w: %v", ErrForeignKeyConstraint, err)}
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &DatabaseError{Op: op, Err: fmt.Errorf("%w: %v", ErrUniqueConstraint, err)}
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return &DatabaseError{Op: op, Err: fmt.Errorf("%w: %v", ErrInvalidInput, err)}
		}

		// Without extended result codes only the primary code is set.
		if liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			msg := strings.ToUpper(liteErr.Error())
			switch {
			case strings.Contains(msg, "FOREIGN KEY"):
				return &DatabaseError{Op: op, Err: fmt.Errorf("%w: %v", ErrForeignKeyConstraint, err)}
			case strings.Contains(msg, "UNIQUE"):
				return &DatabaseError{Op: op, Err: fmt.Errorf("%w: %v", ErrUniqueConstraint, err)}
			case strings.Contains(msg, "NOT NULL"):
				return &DatabaseError{Op: op, Err: fmt.Errorf("%w: %v", ErrInvalidInput, err)}
			}
		}
	}

	return &DatabaseError{Op: op, Err: err}
}
