package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stockagent/stockagent/internal/database"
)

type Service struct {
	repo       Repository
	dailyLimit int
	validate   *validator.Validate
}

func NewService(repo Repository, dailyLimit int) *Service {
	return &Service{
		repo:       repo,
		dailyLimit: dailyLimit,
		validate:   validator.New(),
	}
}

func (s *Service) DailyLimit() int {
	return s.dailyLimit
}

// GetOrCreate returns the user for p.UserID, creating the row on first sign-in.
// created reports whether a new row was inserted.
func (s *Service) GetOrCreate(ctx context.Context, p Profile) (*User, bool, error) {
	if err := s.validate.Struct(p); err != nil {
		return nil, false, fmt.Errorf("invalid profile: %w", err)
	}

	user, err := s.repo.GetByUserID(ctx, p.UserID)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		return user, false, nil
	}

	user = &User{
		UserID:    p.UserID,
		Email:     p.Email,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// Lost a race against a concurrent first sign-in.
		if errors.Is(err, database.ErrUniqueViolation) {
			existing, getErr := s.repo.GetByUserID(ctx, p.UserID)
			if getErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	slog.Info("user created", "user_id", user.UserID)
	return user, true, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, p Profile) error {
	if err := s.validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return s.repo.UpdateProfile(ctx, p)
}

// Usage reports the quota for userID as of now. A counter left over from a
// previous day is reported as unused.
func (s *Service) Usage(ctx context.Context, userID string, now time.Time) (*Usage, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	used := user.usedOn(now)
	remaining := s.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return &Usage{
		UserID:           user.UserID,
		QueriesUsedToday: used,
		QueriesRemaining: remaining,
		DailyLimit:       s.dailyLimit,
		LastQueryDate:    user.LastQueryDate,
	}, nil
}

// CheckDailyLimit returns the queries left today or ErrDailyLimitReached.
func (s *Service) CheckDailyLimit(ctx context.Context, userID string, now time.Time) (int, error) {
	usage, err := s.Usage(ctx, userID, now)
	if err != nil {
		return 0, err
	}
	if usage.QueriesRemaining == 0 {
		return 0, fmt.Errorf("%w: %d queries per day", ErrDailyLimitReached, s.dailyLimit)
	}
	return usage.QueriesRemaining, nil
}

// ConsumeQuery counts one query against today's quota and returns what is
// left afterwards.
func (s *Service) ConsumeQuery(ctx context.Context, userID string, now time.Time) (int, error) {
	used, ok, err := s.repo.ConsumeQuery(ctx, userID, now.UTC(), StartOfDay(now), s.dailyLimit)
	if err != nil {
		return 0, err
	}
	if !ok {
		user, err := s.repo.GetByUserID(ctx, userID)
		if err != nil {
			return 0, err
		}
		if user == nil {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %d queries per day", ErrDailyLimitReached, s.dailyLimit)
	}
	return s.dailyLimit - used, nil
}

// RefundQuery returns a query consumed today whose interaction was never
// stored.
func (s *Service) RefundQuery(ctx context.Context, userID string, now time.Time) error {
	return s.repo.RefundQuery(ctx, userID, StartOfDay(now))
}

func (s *Service) ResetDaily(ctx context.Context, userID string, now time.Time) error {
	if err := s.repo.ResetDailyQueries(ctx, userID, now.UTC()); err != nil {
		return err
	}
	slog.Info("daily quota reset", "user_id", userID)
	return nil
}

// ResetStale zeroes every counter last touched before today.
func (s *Service) ResetStale(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ResetStale(ctx, StartOfDay(now))
	if err != nil {
		return 0, err
	}
	slog.Info("stale quotas reset", "users", n)
	return n, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}
