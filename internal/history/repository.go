package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockagent/stockagent/internal/database"
)

// Repository reads and appends chat_history rows. Every call runs as the
// owning identity, so the row-level-security policies decide visibility.
type Repository interface {
	Append(ctx context.Context, rec *Record) error
	ListByUser(ctx context.Context, identity string, limit int) ([]Record, error)
	Count(ctx context.Context, identity string) (int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Append(ctx context.Context, rec *Record) error {
	err := database.WithIdentity(ctx, r.pool, rec.UserID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`INSERT INTO chat_history (user_id, message, response, message_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at`,
			rec.UserID, rec.Message, rec.Response, rec.MessageID,
		).Scan(&rec.ID, &rec.CreatedAt)
	})
	if err != nil {
		err = database.Classify(err)
		if errors.Is(err, database.ErrForeignKey) {
			return fmt.Errorf("%w: %s", ErrUnknownUser, rec.UserID)
		}
		return fmt.Errorf("inserting chat history: %w", err)
	}
	return nil
}

// ListByUser returns the newest rows visible to identity.
func (r *postgresRepository) ListByUser(ctx context.Context, identity string, limit int) ([]Record, error) {
	var out []Record
	err := database.WithIdentity(ctx, r.pool, identity, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, user_id, message, response, message_id, created_at
			 FROM chat_history
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec Record
			if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Message, &rec.Response, &rec.MessageID, &rec.CreatedAt); err != nil {
				return fmt.Errorf("scanning chat history: %w", err)
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("listing chat history: %w", database.Classify(err))
	}
	return out, nil
}

func (r *postgresRepository) Count(ctx context.Context, identity string) (int64, error) {
	var n int64
	err := database.WithIdentity(ctx, r.pool, identity, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT COUNT(*) FROM chat_history`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("counting chat history: %w", database.Classify(err))
	}
	return n, nil
}
