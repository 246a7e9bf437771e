package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/seafood-erp/seafood-erp/internal/shared"
)

// PostgreSQL error codes the repositories care about.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Classify translates driver errors into the shared error taxonomy. Errors that already carry a
// shared sentinel, and errors that are not PostgreSQL errors, are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", shared.ErrDuplicate, constraintOrDetail(pgErr))
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %s", shared.ErrInUse, constraintOrDetail(pgErr))
	case codeCheckViolation, codeNumericOutOfRange:
		return fmt.Errorf("%w: %s", shared.ErrValidation, constraintOrDetail(pgErr))
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", shared.ErrConcurrentModification, pgErr.Message)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation, optionally on the
// named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func constraintOrDetail(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	return pgErr.Detail
}
