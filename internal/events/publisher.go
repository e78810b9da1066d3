package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
// A nil *Publisher is valid and drops every event, which is how the tools
// run when NATS_URL is not configured.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

func (p *Publisher) PublishDeploy(ctx context.Context, event DeployEvent) error {
	return p.publish(ctx, SubjectDeploy, event)
}

func (p *Publisher) PublishChatRecorded(ctx context.Context, event ChatRecordedEvent) error {
	return p.publish(ctx, SubjectChatRecorded, event)
}

func (p *Publisher) PublishMonitor(ctx context.Context, event MonitorEvent) error {
	return p.publish(ctx, SubjectMonitor, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	if p == nil || p.js == nil {
		slog.Debug("event publishing disabled, dropping event", "subject", subject)
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
