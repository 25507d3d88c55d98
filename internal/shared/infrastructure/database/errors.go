package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNoRows is returned when a query expected to return a row returns none.
var ErrNoRows = errors.New("no rows in result set")

// IsNoRows returns true if the error indicates no rows were found.
// This handles both pgx.ErrNoRows and sql.ErrNoRows.
func IsNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, ErrNoRows)
}

// PostgreSQL error codes relevant to Bookline's constraints.
const (
	// pgExclusionViolation is SQLSTATE 23P01, raised by GiST exclusion
	// constraints such as the per-staff booking range exclusion.
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

// IsExclusionViolation reports whether err is a PostgreSQL exclusion
// constraint violation. When constraint is non-empty, the violated
// constraint name must match too.
func IsExclusionViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgExclusionViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsUniqueViolation reports whether err is a unique constraint
// violation on either backend. The SQLite driver exposes no typed
// constraint error, so local mode falls back on the message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
