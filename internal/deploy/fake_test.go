package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockagent/stockagent/internal/config"
	"github.com/stockagent/stockagent/internal/events"
)

// fakeRunner records every command. Commands whose line starts with a key of
// fail return that error.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	outputs map[string]string
	paths   map[string]bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		fail:    map[string]error{},
		outputs: map[string]string{},
		paths:   map[string]bool{},
	}
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := commandLine(name, args)
	f.mu.Lock()
	f.calls = append(f.calls, line)
	f.mu.Unlock()
	for prefix, err := range f.fail {
		if strings.HasPrefix(line, prefix) {
			return nil, err
		}
	}
	for prefix, out := range f.outputs {
		if strings.HasPrefix(line, prefix) {
			return []byte(out), nil
		}
	}
	return nil, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.paths[name] {
		return "/usr/bin/" + name, nil
	}
	return "", errors.New("executable file not found in $PATH")
}

func (f *fakeRunner) ran(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

type fakeHealth struct {
	err   error
	calls int
	url   string
	wait  time.Duration
}

func (f *fakeHealth) WaitAndCheck(_ context.Context, url string, wait time.Duration) error {
	f.calls++
	f.url = url
	f.wait = wait
	return f.err
}

type fakePublisher struct {
	events []events.DeployEvent
}

func (f *fakePublisher) PublishDeploy(_ context.Context, e events.DeployEvent) error {
	f.events = append(f.events, e)
	return nil
}

const validEnv = `GOOGLE_CLIENT_ID=client.apps.googleusercontent.com
SUPABASE_URL=https://abc.supabase.co
SUPABASE_SERVICE_ROLE_KEY=service-role
JWT_SECRET=0123456789abcdef0123456789abcdef
OPENAI_API_KEY=sk-test
`

// testDeployConfig points every path into a temp dir.
func testDeployConfig(t *testing.T) config.DeployConfig {
	t.Helper()
	root := t.TempDir()

	binary := filepath.Join(root, "build", "api")
	require.NoError(t, os.MkdirAll(filepath.Dir(binary), 0o755))
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/true\n"), 0o755))

	envPath := filepath.Join(root, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(validEnv), 0o644))

	for _, dir := range []string{"systemd", "sites-available", "sites-enabled"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	return config.DeployConfig{
		AppName:         "stockagent",
		AppDir:          filepath.Join(root, "opt", "stockagent"),
		ServiceUser:     "stockagent",
		BinaryPath:      binary,
		EnvFile:         envPath,
		UnitPath:        filepath.Join(root, "systemd", "stockagent.service"),
		NginxSitePath:   filepath.Join(root, "sites-available", "stockagent"),
		NginxEnabledDir: filepath.Join(root, "sites-enabled"),
		ServerName:      "_",
		UpstreamPort:    8000,
		HealthPath:      "/health",
		HealthWait:      10 * time.Second,
		HealthTimeout:   5 * time.Second,
		ComposeFile:     filepath.Join(root, "docker-compose.yml"),
		MemoryMax:       "1536M",
		Packages:        []string{"nginx", "curl"},
	}
}
