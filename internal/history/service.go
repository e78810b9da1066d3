package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stockagent/stockagent/internal/events"
)

// QuotaConsumer counts a query against the daily allowance and gives it
// back when the interaction could not be stored.
type QuotaConsumer interface {
	ConsumeQuery(ctx context.Context, userID string, now time.Time) (int, error)
	RefundQuery(ctx context.Context, userID string, now time.Time) error
}

// BurstLimiter bounds queries per sliding window.
type BurstLimiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishChatRecorded(ctx context.Context, event events.ChatRecordedEvent) error
}

// BurstPolicy configures the per-user sliding window. A zero Max disables it.
type BurstPolicy struct {
	Max    int
	Window time.Duration
}

type Service struct {
	repo      Repository
	quota     QuotaConsumer
	limiter   BurstLimiter
	burst     BurstPolicy
	publisher EventPublisher
	validate  *validator.Validate
}

func NewService(repo Repository, quota QuotaConsumer, limiter BurstLimiter, burst BurstPolicy, publisher EventPublisher) *Service {
	return &Service{
		repo:      repo,
		quota:     quota,
		limiter:   limiter,
		burst:     burst,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// NewMessageID returns the identifier stored with each interaction.
func NewMessageID() string {
	return "msg_" + uuid.NewString()
}

// Record appends one interaction after the burst and daily limits admit it.
// The daily counter is consumed before the row is written and refunded if
// the write fails.
func (s *Service) Record(ctx context.Context, entry Entry, now time.Time) (*Receipt, error) {
	if err := s.validate.Struct(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if s.limiter != nil && s.burst.Max > 0 {
		allowed, err := s.limiter.Allow(ctx, entry.UserID, s.burst.Max, s.burst.Window)
		if err != nil {
			slog.Warn("history: burst limiter failed, allowing query", "error", err)
		} else if !allowed {
			return nil, fmt.Errorf("%w: max %d per %s", ErrBurstLimited, s.burst.Max, s.burst.Window)
		}
	}

	remaining, err := s.quota.ConsumeQuery(ctx, entry.UserID, now)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		UserID:    entry.UserID,
		Message:   entry.Message,
		Response:  entry.Response,
		MessageID: NewMessageID(),
	}
	if err := s.repo.Append(ctx, rec); err != nil {
		if rerr := s.quota.RefundQuery(context.WithoutCancel(ctx), entry.UserID, now); rerr != nil {
			slog.Error("history: refunding query after failed append", "user_id", entry.UserID, "error", rerr)
		}
		return nil, err
	}

	if s.publisher != nil {
		err := s.publisher.PublishChatRecorded(ctx, events.ChatRecordedEvent{
			UserID:           rec.UserID,
			MessageID:        rec.MessageID,
			QueriesRemaining: remaining,
			Timestamp:        rec.CreatedAt,
		})
		if err != nil {
			slog.Warn("history: publishing chat event", "error", err)
		}
	}

	slog.Info("chat interaction recorded", "user_id", rec.UserID, "message_id", rec.MessageID, "queries_remaining", remaining)
	return &Receipt{Record: *rec, QueriesRemaining: remaining}, nil
}

// List returns up to limit of the newest interactions visible to identity.
func (s *Service) List(ctx context.Context, identity string, limit int) ([]Record, error) {
	if identity == "" {
		return nil, ErrMissingIdentity
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, identity, limit)
}
