package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *DeployStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDeployStore(client)
}

func TestDeployStore_EmptyReturnsNil(t *testing.T) {
	latest, err := newStore(t).Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestDeployStore_SaveAndLatest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	finished := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	event := DeployEvent{
		ID:         "d-1",
		Mode:       "baremetal",
		Status:     StatusSucceeded,
		Steps:      []string{"install packages", "health check"},
		FinishedAt: finished,
	}
	require.NoError(t, store.Save(ctx, event))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "d-1", latest.ID)
	assert.Equal(t, StatusSucceeded, latest.Status)
	assert.True(t, finished.Equal(latest.FinishedAt))
}

func TestDeployStore_IgnoresOlderEvents(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Save(ctx, DeployEvent{ID: "new", FinishedAt: now}))
	require.NoError(t, store.Save(ctx, DeployEvent{ID: "old", FinishedAt: now.Add(-time.Hour)}))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)
}

func TestDeployStore_ConcurrentSavesKeepNewest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Save(ctx, DeployEvent{
				ID:         fmt.Sprintf("d-%d", i),
				FinishedAt: base.Add(time.Duration(i) * time.Minute),
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("d-%d", writers-1), latest.ID)
}

func TestDecodeDeploy(t *testing.T) {
	event, err := decodeDeploy([]byte(`{"id":"d-2","mode":"container","status":"failed","failed_step":"health check"}`))
	require.NoError(t, err)
	assert.Equal(t, "container", event.Mode)
	assert.Equal(t, "health check", event.FailedStep)

	_, err = decodeDeploy([]byte(`not json`))
	assert.Error(t, err)
}

func TestPublisher_NilDropsEvents(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.PublishDeploy(context.Background(), DeployEvent{ID: "x"}))
	assert.NoError(t, p.PublishMonitor(context.Background(), MonitorEvent{Host: "h"}))
}
