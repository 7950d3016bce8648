package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	pgUniqueViolation   = "23505"
	pgInvalidTextFormat = "22P02"
)

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally restricted to one named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// isInvalidID reports whether postgres rejected an id that is not a valid uuid.
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgInvalidTextFormat
}

// notFound maps lookups that cannot match a row to the given sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return sentinel
	}
	return nil
}
