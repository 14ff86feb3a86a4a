package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint violations reported by every CategoryRepository implementation.
var (
	ErrUniqueViolation     = errors.New("unique constraint violated")
	ErrForeignKeyViolation = errors.New("foreign key constraint violated")
	ErrCheckViolation      = errors.New("check constraint violated")
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// pgCode returns the SQLSTATE of a PostgreSQL error, or "" for other errors.
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// wrapErr annotates err with op and, for constraint violations, the
// matching sentinel.
func wrapErr(op string, err error) error {
	switch pgCode(err) {
	case pgUniqueViolation:
		return fmt.Errorf("%s: %w: %w", op, ErrUniqueViolation, err)
	case pgForeignKeyViolation:
		return fmt.Errorf("%s: %w: %w", op, ErrForeignKeyViolation, err)
	case pgCheckViolation:
		return fmt.Errorf("%s: %w: %w", op, ErrCheckViolation, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
