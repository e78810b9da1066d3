package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthenticatedRole is the Postgres role whose queries are subject to the
// row-level-security policies.
const AuthenticatedRole = "authenticated"

// WithIdentity runs fn in a transaction that acts as userID: the role is
// switched to authenticated and request.jwt.claim.sub carries the subject,
// so auth_uid() and every RLS policy see the caller. Settings are
// transaction-local and vanish on commit or rollback.
func WithIdentity(ctx context.Context, pool *pgxpool.Pool, userID string, fn func(pgx.Tx) error) error {
	if userID == "" {
		return ErrMissingIdentity
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SET LOCAL ROLE "+AuthenticatedRole); err != nil {
			return fmt.Errorf("switching to %s role: %w", AuthenticatedRole, err)
		}
		if _, err := tx.Exec(ctx, "SELECT set_config('request.jwt.claim.sub', $1, true)", userID); err != nil {
			return fmt.Errorf("setting request identity: %w", err)
		}
		return fn(tx)
	})
}

// WithServiceRole runs fn in a plain transaction as the connecting role,
// which owns the tables and is not subject to RLS. It is what the Supabase
// service-role key grants.
func WithServiceRole(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, pool, fn)
}
