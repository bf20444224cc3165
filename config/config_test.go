package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/errors"
)

// TestExtensions verifies that custom extensions in traffisense.yml are properly loaded
func TestExtensions(t *testing.T) {
	yamlContent := []byte(`
version: "1.0"
backend:
  url: http://127.0.0.1:8000

logging:
  level: debug
  report_caller: true
  format:
    preset: simple
`)

	cfg, err := LoadFromBytes(yamlContent)
	require.NoError(t, err)
	require.NotNil(t, cfg.Extensions)

	type formatConfig struct {
		Preset string `yaml:"preset"`
	}
	type loggingConfig struct {
		Level        string       `yaml:"level"`
		ReportCaller bool         `yaml:"report_caller"`
		Format       formatConfig `yaml:"format"`
	}

	var logCfg loggingConfig
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
	assert.True(t, logCfg.ReportCaller)
	assert.Equal(t, "simple", logCfg.Format.Preset)

	// Missing extension leaves the target untouched
	var other loggingConfig
	require.NoError(t, cfg.UnmarshalExtension("missing", &other))
	assert.Empty(t, other.Level)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultBackendURL, cfg.Backend.URL)
	assert.Equal(t, 5, cfg.Session.MaxRetries)
	assert.Equal(t, time.Second, cfg.Session.BaseDelay.D())
	assert.Equal(t, 10*time.Second, cfg.Session.CapDelay.D())
	assert.Equal(t, 3*time.Second, cfg.Session.AlertDuration.D())
	assert.Equal(t, 2.0, cfg.Session.PreRoll)
	assert.Equal(t, "auto", cfg.Session.Direction)
	assert.Equal(t, "mpv", cfg.Player.Command)
	assert.NoError(t, cfg.Validate())
}

func TestDurationsParse(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
session:
  base_delay: 250ms
  cap_delay: 5s
  alert_duration: 1500ms
`))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.BaseDelay.D())
	assert.Equal(t, 5*time.Second, cfg.Session.CapDelay.D())
	assert.Equal(t, 1500*time.Millisecond, cfg.Session.AlertDuration.D())
}

func TestSchemaRejectsUnknownNestedKey(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
session:
  max_retry: 3
`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
}

func TestSchemaRejectsBadDirection(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
session:
  direction: "45"
`))
	require.Error(t, err)
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("TS_BACKEND", "http://backend.internal:9000")

	cfg, err := LoadFromBytes([]byte(`
backend:
  url: ${TS_BACKEND}
  stream_url: ${TS_STREAM:-ws://backend.internal:9000}
`))
	require.NoError(t, err)
	assert.Equal(t, "http://backend.internal:9000", cfg.Backend.URL)
	assert.Equal(t, "ws://backend.internal:9000", cfg.Backend.StreamURL)
}

func TestLoadFromMergesOverride(t *testing.T) {
	t.Setenv("TRAFFISENSE_HOME", t.TempDir())
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "traffisense.yml"), []byte(`
backend:
  url: http://10.0.0.5:8000
session:
  max_retries: 3
logging:
  level: info
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "traffisense.override.yml"), []byte(`
session:
  max_retries: 7
logging:
  report_caller: true
`), 0o644))

	nested := filepath.Join(dir, "videos", "today")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := LoadFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", cfg.Backend.URL)
	assert.Equal(t, 7, cfg.Session.MaxRetries)

	logging, ok := cfg.Extensions["logging"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "info", logging["level"])
	assert.Equal(t, true, logging["report_caller"])
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traffisense.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[backend]
url = "http://192.168.1.20:8000"

[session]
max_retries = 2
base_delay = "500ms"

[logging]
level = "warn"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.20:8000", cfg.Backend.URL)
	assert.Equal(t, 2, cfg.Session.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.BaseDelay.D())
	assert.Contains(t, cfg.Extensions, "logging")
}

func TestFindConfigFileNotFound(t *testing.T) {
	t.Setenv("TRAFFISENSE_HOME", t.TempDir())
	_, err := FindConfigFile(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestLoadOrDefaultWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadOrDefault(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultBackendURL, cfg.Backend.URL)
	assert.Equal(t, DefaultBackendURL, cfg.Backend.StreamBase())

	cfg.Backend.StreamURL = "ws://stream:9000"
	assert.Equal(t, "ws://stream:9000", cfg.Backend.StreamBase())
}
