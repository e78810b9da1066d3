package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProbe(time.Second)

	require.NoError(t, p.Check(context.Background(), srv.URL+"/health"))

	err := p.Check(context.Background(), srv.URL+"/other")
	assert.ErrorIs(t, err, ErrUnhealthy)
	assert.Contains(t, err.Error(), "503")
}

func TestProbe_CheckConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewProbe(time.Second).Check(context.Background(), url+"/health")
	assert.ErrorIs(t, err, ErrUnhealthy)
}

func TestProbe_CheckTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	err := NewProbe(50*time.Millisecond).Check(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnhealthy)
}

func TestProbe_WaitAndCheckSingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var slept time.Duration
	p := NewProbe(time.Second)
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	err := p.WaitAndCheck(context.Background(), srv.URL, 10*time.Second)
	assert.ErrorIs(t, err, ErrUnhealthy)
	assert.Equal(t, 10*time.Second, slept)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestChecker_Run(t *testing.T) {
	c := NewChecker()
	c.Register("database", func(context.Context) error { return nil })
	c.Register("redis", func(context.Context) error { return errors.New("down") })
	c.Register("nats", nil)

	report := c.Run(context.Background(), time.Second)

	assert.Equal(t, StatusDegraded, report.Status)
	assert.False(t, report.Healthy())
	assert.Equal(t, StatusHealthy, report.Components["database"])
	assert.Equal(t, StatusUnhealthy, report.Components["redis"])
	assert.Equal(t, StatusNotConfigured, report.Components["nats"])
}

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker()
	c.Register("database", func(context.Context) error { return nil })

	report := c.Run(context.Background(), time.Second)
	assert.True(t, report.Healthy())
}
