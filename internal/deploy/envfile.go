package deploy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/stockagent/stockagent/internal/config"
)

// RequiredEnvKeys must carry real values before the service can start.
var RequiredEnvKeys = []string{
	"GOOGLE_CLIENT_ID",
	"SUPABASE_URL",
	"SUPABASE_SERVICE_ROLE_KEY",
	"JWT_SECRET",
}

// templateEnv is written when no .env exists so the operator has something to fill in.
var templateEnv = map[string]string{
	"GOOGLE_CLIENT_ID":          "",
	"SUPABASE_URL":              "",
	"SUPABASE_SERVICE_ROLE_KEY": "",
	"JWT_SECRET":                config.PlaceholderJWTSecret,
	"OPENAI_API_KEY":            "",
	"ALPHA_VANTAGE_API_KEY":     "",
	"FINNHUB_API_KEY":           "",
	"SERVER_PORT":               "8000",
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "json",
}

var (
	ErrEnvMissing    = errors.New("env file not found")
	ErrEnvIncomplete = errors.New("env file is incomplete")
)

// EnvFile is a parsed .env file.
type EnvFile struct {
	Path   string
	Values map[string]string
}

func LoadEnvFile(path string) (*EnvFile, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEnvMissing, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &EnvFile{Path: path, Values: values}, nil
}

// Missing returns the required keys that are absent, empty or still hold the
// example placeholder.
func (e *EnvFile) Missing(required ...string) []string {
	var missing []string
	for _, key := range required {
		v := strings.TrimSpace(e.Values[key])
		if v == "" || (key == "JWT_SECRET" && v == config.PlaceholderJWTSecret) {
			missing = append(missing, key)
		}
	}
	return missing
}

// Check fails with ErrEnvIncomplete when any required key is missing.
func (e *EnvFile) Check(required ...string) error {
	if missing := e.Missing(required...); len(missing) > 0 {
		return fmt.Errorf("%w: %s missing %s", ErrEnvIncomplete, e.Path, strings.Join(missing, ", "))
	}
	return nil
}

// WriteEnvFile writes values to path readable only by its owner.
func WriteEnvFile(path string, values map[string]string) error {
	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding env file: %w", err)
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restricting %s: %w", path, err)
	}
	return nil
}

// WriteEnvTemplate creates path with placeholder values. An existing file is left alone.
func WriteEnvTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return WriteEnvFile(path, templateEnv)
}

// TemplateKeys lists the keys of the generated template, sorted.
func TemplateKeys() []string {
	keys := make([]string, 0, len(templateEnv))
	for k := range templateEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// verifyEnv loads path and checks it. A missing file is replaced by a template
// and reported as incomplete.
func verifyEnv(path string) (*EnvFile, error) {
	env, err := LoadEnvFile(path)
	if errors.Is(err, ErrEnvMissing) {
		if werr := WriteEnvTemplate(path); werr != nil {
			return nil, werr
		}
		return nil, fmt.Errorf("%w: wrote template to %s, fill in %s", ErrEnvIncomplete, path, strings.Join(RequiredEnvKeys, ", "))
	}
	if err != nil {
		return nil, err
	}
	if err := env.Check(RequiredEnvKeys...); err != nil {
		return nil, err
	}
	return env, nil
}
