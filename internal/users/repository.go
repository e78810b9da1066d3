package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockagent/stockagent/internal/database"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByUserID(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, p Profile) error
	// ConsumeQuery atomically counts one query for userID unless the counter
	// for the day starting at dayStart already reached limit. A counter from
	// an earlier day restarts at 1. ok is false when nothing was updated.
	ConsumeQuery(ctx context.Context, userID string, now, dayStart time.Time, limit int) (used int, ok bool, err error)
	// RefundQuery gives back one query counted on or after dayStart. It is a
	// no-op once the counter is zero or belongs to an earlier day.
	RefundQuery(ctx context.Context, userID string, dayStart time.Time) error
	ResetDailyQueries(ctx context.Context, userID string, at time.Time) error
	ResetStale(ctx context.Context, dayStart time.Time) (int64, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const userColumns = `id, user_id, email, name, avatar_url, queries_used_today, last_query_date, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(&user.ID, &user.UserID, &user.Email, &user.Name, &user.AvatarURL,
		&user.QueriesUsedToday, &user.LastQueryDate, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (user_id, email, name, avatar_url, queries_used_today, last_query_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.UserID, user.Email, user.Name, user.AvatarURL, user.QueriesUsedToday, user.LastQueryDate,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", database.Classify(err))
	}
	return nil
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by user_id: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) UpdateProfile(ctx context.Context, p Profile) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $2, name = $3, avatar_url = $4 WHERE user_id = $1`,
		p.UserID, p.Email, p.Name, p.AvatarURL)
	if err != nil {
		return fmt.Errorf("updating user profile: %w", database.Classify(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) ConsumeQuery(ctx context.Context, userID string, now, dayStart time.Time, limit int) (int, bool, error) {
	query := `
		UPDATE users
		SET queries_used_today = CASE
		        WHEN last_query_date IS NULL OR last_query_date < $2 THEN 1
		        ELSE queries_used_today + 1
		    END,
		    last_query_date = $3
		WHERE user_id = $1
		  AND (last_query_date IS NULL OR last_query_date < $2 OR queries_used_today < $4)
		RETURNING queries_used_today`

	var used int
	err := r.pool.QueryRow(ctx, query, userID, dayStart, now, limit).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("consuming query: %w", err)
	}
	return used, true, nil
}

func (r *postgresRepository) RefundQuery(ctx context.Context, userID string, dayStart time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET queries_used_today = queries_used_today - 1
		WHERE user_id = $1 AND queries_used_today > 0 AND last_query_date >= $2`,
		userID, dayStart)
	if err != nil {
		return fmt.Errorf("refunding query: %w", err)
	}
	return nil
}

func (r *postgresRepository) ResetDailyQueries(ctx context.Context, userID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET queries_used_today = 0, last_query_date = $2 WHERE user_id = $1`,
		userID, at)
	if err != nil {
		return fmt.Errorf("resetting daily queries: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) ResetStale(ctx context.Context, dayStart time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET queries_used_today = 0
		 WHERE queries_used_today > 0 AND last_query_date < $1`, dayStart)
	if err != nil {
		return 0, fmt.Errorf("resetting stale quotas: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *postgresRepository) List(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		out = append(out, *user)
	}
	return out, rows.Err()
}
