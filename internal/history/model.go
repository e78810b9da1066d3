package history

import (
	"errors"
	"time"
)

var (
	ErrUnknownUser     = errors.New("chat history owner does not exist")
	ErrInvalidEntry    = errors.New("invalid chat history entry")
	ErrBurstLimited    = errors.New("too many queries in a short period")
	ErrMissingIdentity = errors.New("identity is required")
)

// MaxMessageLength bounds the user message stored per interaction.
const MaxMessageLength = 1000

// Entry is one interaction to append.
type Entry struct {
	UserID   string `json:"user_id" validate:"required,max=255"`
	Message  string `json:"message" validate:"required,min=1,max=1000"`
	Response string `json:"response" validate:"required"`
}

// Record matches the chat_history table schema. Rows are immutable once stored.
type Record struct {
	ID        int64     `json:"-"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	MessageID string    `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Receipt is returned after a successful append.
type Receipt struct {
	Record           Record `json:"record"`
	QueriesRemaining int    `json:"queries_remaining"`
}
