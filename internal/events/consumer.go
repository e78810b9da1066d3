package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

const deployConsumerName = "deploy-recorder"

// DeployConsumer listens on the deploy subject and records the latest event.
type DeployConsumer struct {
	js    jetstream.JetStream
	store *DeployStore
}

func NewDeployConsumer(js jetstream.JetStream, store *DeployStore) *DeployConsumer {
	return &DeployConsumer{js: js, store: store}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *DeployConsumer) Start(ctx context.Context) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, StreamEvents, jetstream.ConsumerConfig{
		Durable:       deployConsumerName,
		FilterSubject: SubjectDeploy,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return err
	}

	slog.Info("deploy consumer started", "consumer", deployConsumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("deploy consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handle(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *DeployConsumer) handle(ctx context.Context, msg jetstream.Msg) {
	event, err := decodeDeploy(msg.Data())
	if err != nil {
		// Malformed payloads never become valid; drop them.
		slog.Error("deploy consumer: unmarshaling event", "error", err)
		_ = msg.Term()
		return
	}

	if err := c.store.Save(ctx, event); err != nil {
		slog.Error("deploy consumer: storing event", "error", err, "deploy_id", event.ID)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
	slog.Debug("deploy consumer: recorded event", "deploy_id", event.ID, "status", event.Status)
}

func decodeDeploy(data []byte) (DeployEvent, error) {
	var event DeployEvent
	err := json.Unmarshal(data, &event)
	return event, err
}
