package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrSchemaExists     = errors.New("schema object already exists")
	ErrForeignKey       = errors.New("foreign key violation")
	ErrUniqueViolation  = errors.New("unique constraint violation")
	ErrPermissionDenied = errors.New("permission denied by row-level security")
	ErrMissingIdentity  = errors.New("identity is required")
)

// Postgres SQLSTATE codes the application reacts to.
const (
	codeUniqueViolation       = "23505"
	codeForeignKeyViolation   = "23503"
	codeInsufficientPrivilege = "42501"
	codeDuplicateTable        = "42P07"
	codeDuplicateObject       = "42710"
	codeDuplicateFunction     = "42723"
)

// Classify wraps known Postgres errors with a package sentinel while keeping
// the original error in the chain.
func Classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeDuplicateTable, codeDuplicateObject, codeDuplicateFunction:
		return fmt.Errorf("%w: %w", ErrSchemaExists, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	case codeUniqueViolation:
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	case codeInsufficientPrivilege:
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	return err
}
