package users

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDailyLimitReached = errors.New("daily query limit reached")
)

// User matches the users table schema. UserID is the subject issued by the
// external auth provider, not the surrogate primary key.
type User struct {
	ID               int64      `json:"-"`
	UserID           string     `json:"user_id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	AvatarURL        string     `json:"avatar_url,omitempty"`
	QueriesUsedToday int        `json:"queries_used_today"`
	LastQueryDate    *time.Time `json:"last_query_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Profile is the identity data received at sign-in.
type Profile struct {
	UserID    string `json:"user_id" validate:"required,max=255"`
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"max=255"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

// Usage reports the daily quota of a user.
type Usage struct {
	UserID           string     `json:"user_id"`
	QueriesUsedToday int        `json:"queries_used_today"`
	QueriesRemaining int        `json:"queries_remaining"`
	DailyLimit       int        `json:"daily_limit"`
	LastQueryDate    *time.Time `json:"last_query_date,omitempty"`
}

// StartOfDay truncates t to midnight UTC. Quotas roll over at that instant.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// usedOn returns the counter as seen on the day of now: a counter last
// touched on an earlier day counts as zero.
func (u *User) usedOn(now time.Time) int {
	if u.LastQueryDate == nil || u.LastQueryDate.Before(StartOfDay(now)) {
		return 0
	}
	return u.QueriesUsedToday
}
