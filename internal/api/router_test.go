package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockagent/stockagent/internal/events"
	"github.com/stockagent/stockagent/internal/health"
)

type staticDeploys struct {
	event *events.DeployEvent
	err   error
}

func (s staticDeploys) Latest(context.Context) (*events.DeployEvent, error) {
	return s.event, s.err
}

func checker(dbErr error) *health.Checker {
	c := health.NewChecker()
	c.Register("database", func(context.Context) error { return dbErr })
	c.Register("nats", nil)
	return c
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRouter_HealthHealthy(t *testing.T) {
	r := NewRouter(checker(nil), nil, RouterConfig{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "healthy", data["status"])
	assert.NotEmpty(t, data["timestamp"])
	assert.Equal(t, "not configured", data["components"].(map[string]any)["nats"])
}

func TestRouter_HealthDegraded(t *testing.T) {
	r := NewRouter(checker(errors.New("connection refused")), nil, RouterConfig{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "degraded", data["status"])
	assert.Equal(t, "unhealthy", data["components"].(map[string]any)["database"])
}

func TestRouter_Live(t *testing.T) {
	r := NewRouter(checker(errors.New("down")), nil, RouterConfig{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_RootIncludesLatestDeploy(t *testing.T) {
	finished := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	deploys := staticDeploys{event: &events.DeployEvent{ID: "d1", Mode: "baremetal", Status: events.StatusSucceeded, FinishedAt: finished}}
	r := NewRouter(checker(nil), deploys, RouterConfig{Version: "1.0.0", DailyLimit: 3})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, ServiceName, data["message"])
	assert.Equal(t, float64(3), data["daily_query_limit"])
	assert.Equal(t, "d1", data["last_deploy"].(map[string]any)["id"])
}

func TestRouter_RootSurvivesDeployStoreError(t *testing.T) {
	r := NewRouter(checker(nil), staticDeploys{err: errors.New("redis down")}, RouterConfig{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := decode(t, rec)["data"].(map[string]any)["last_deploy"]
	assert.False(t, ok)
}

func TestRouter_RateLimiterAppliesToRootOnly(t *testing.T) {
	block := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			JSONErrorMessage(w, http.StatusTooManyRequests, "too many requests")
		})
	}
	r := NewRouter(checker(nil), nil, RouterConfig{RateLimiter: block})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_NotFound(t *testing.T) {
	r := NewRouter(checker(nil), nil, RouterConfig{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/chat", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode(t, rec)["error"])
}

func TestRouter_Metrics(t *testing.T) {
	r := NewRouter(checker(nil), nil, RouterConfig{})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stockagent_http_requests_total")
}

func TestHandleError(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{ErrNotFound, http.StatusNotFound, "not found"},
		{fmt.Errorf("routing: %w", ErrMethodNotAllowed), http.StatusMethodNotAllowed, "method not allowed"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		HandleError(rec, tc.err)
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		assert.Equal(t, tc.msg, decode(t, rec)["error"])
	}
}
