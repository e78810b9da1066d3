package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := a.rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	missing := filepath.Join(t.TempDir(), "missing.env")
	root.SetArgs(append([]string{"--no-color", "--env-file", missing}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	root := (&app{}).rootCmd()
	for _, path := range [][]string{
		{"deploy"},
		{"deploy-container"},
		{"monitor"},
		{"healthcheck"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
		{"schema", "apply"},
		{"users", "ensure"},
		{"users", "reset-quota"},
		{"users", "reset-stale"},
		{"users", "list"},
		{"history", "append"},
		{"history", "list"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out, err := run(t, "healthcheck", srv.URL+"/health")
	require.NoError(t, err)
	assert.Contains(t, out, "is healthy")

	_, err = run(t, "healthcheck", srv.URL+"/down")
	assert.ErrorContains(t, err, "health check failed")
}

func TestDeploy_InvalidConfigFailsBeforeAnyStep(t *testing.T) {
	t.Setenv("DEPLOY_UNIT_PATH", "relative.service")

	out, err := run(t, "deploy")
	assert.ErrorContains(t, err, "DEPLOY_UNIT_PATH")
	assert.NotContains(t, out, "==>")
}

func TestUsersEnsure_RequiresFlags(t *testing.T) {
	_, err := run(t, "users", "ensure")
	assert.ErrorContains(t, err, "required flag")
}
