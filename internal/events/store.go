package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const latestDeployKey = "stockagent:deploy:latest"

// maxSaveAttempts bounds optimistic retries when concurrent consumers race
// on the same key.
const maxSaveAttempts = 10

// DeployStore keeps the most recent deploy event in Redis so the API can
// report what is running.
type DeployStore struct {
	rdb redis.UniversalClient
}

func NewDeployStore(rdb redis.UniversalClient) *DeployStore {
	return &DeployStore{rdb: rdb}
}

// Save stores event unless a newer one is already recorded. The compare and
// the write run under WATCH, so a newer event is never overwritten.
func (s *DeployStore) Save(ctx context.Context, event DeployEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling deploy event: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		current, err := latest(ctx, tx)
		if err != nil {
			return err
		}
		if current != nil && current.FinishedAt.After(event.FinishedAt) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, latestDeployKey, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxSaveAttempts; i++ {
		err := s.rdb.Watch(ctx, txf, latestDeployKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("storing deploy event: %w", err)
		}
		return nil
	}
	return fmt.Errorf("storing deploy event: %w", redis.TxFailedErr)
}

// Latest returns the stored event, or nil when no deployment was recorded.
func (s *DeployStore) Latest(ctx context.Context) (*DeployEvent, error) {
	return latest(ctx, s.rdb)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func latest(ctx context.Context, rdb getter) (*DeployEvent, error) {
	data, err := rdb.Get(ctx, latestDeployKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading deploy event: %w", err)
	}

	var event DeployEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decoding deploy event: %w", err)
	}
	return &event, nil
}
