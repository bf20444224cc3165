package config

import (
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("1s", "250ms") in both YAML and TOML files.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string, e.g. 500ms or 2s",
	}
}

// BackendConfig locates the processing backend.
type BackendConfig struct {
	// URL is the HTTP base of the backend (upload, health, processed videos).
	URL string `yaml:"url,omitempty" toml:"url,omitempty" jsonschema:"description=HTTP base URL of the processing backend"`
	// StreamURL overrides the websocket base. Derived from URL when empty.
	StreamURL        string   `yaml:"stream_url,omitempty" toml:"stream_url,omitempty" jsonschema:"description=Websocket base URL (defaults to url with ws scheme)"`
	RequestTimeout   Duration `yaml:"request_timeout,omitempty" toml:"request_timeout,omitempty" jsonschema:"description=Timeout for upload and health requests"`
	HandshakeTimeout Duration `yaml:"handshake_timeout,omitempty" toml:"handshake_timeout,omitempty" jsonschema:"description=Timeout for the websocket opening handshake"`
}

// StreamBase is the base URL the stream endpoint is built from.
func (b BackendConfig) StreamBase() string {
	if b.StreamURL != "" {
		return b.StreamURL
	}
	return b.URL
}

// SessionConfig tunes the live session controller.
type SessionConfig struct {
	MaxRetries    int      `yaml:"max_retries,omitempty" toml:"max_retries,omitempty" jsonschema:"description=Reconnect attempts before a session fails,minimum=0"`
	BaseDelay     Duration `yaml:"base_delay,omitempty" toml:"base_delay,omitempty" jsonschema:"description=Delay before the first reconnect"`
	CapDelay      Duration `yaml:"cap_delay,omitempty" toml:"cap_delay,omitempty" jsonschema:"description=Upper bound of the reconnect delay"`
	AlertDuration Duration `yaml:"alert_duration,omitempty" toml:"alert_duration,omitempty" jsonschema:"description=How long a violation alert stays visible"`
	PreRoll       float64  `yaml:"pre_roll,omitempty" toml:"pre_roll,omitempty" jsonschema:"description=Seconds subtracted from a violation timestamp before seeking,minimum=0"`
	Jitter        bool     `yaml:"jitter,omitempty" toml:"jitter,omitempty" jsonschema:"description=Randomise reconnect delays"`
	Direction     string   `yaml:"direction,omitempty" toml:"direction,omitempty" jsonschema:"description=Default direction hint,enum=auto,enum=0,enum=90,enum=180,enum=270"`
}

// PlayerConfig names the external player used to review violations.
type PlayerConfig struct {
	Command string   `yaml:"command,omitempty" toml:"command,omitempty" jsonschema:"description=Video player executable"`
	Args    []string `yaml:"args,omitempty" toml:"args,omitempty" jsonschema:"description=Player arguments; {seek} and {url} are substituted"`
}

// ArchiveConfig controls the local report archive.
type ArchiveConfig struct {
	Path     string `yaml:"path,omitempty" toml:"path,omitempty" jsonschema:"description=SQLite file holding finished reports"`
	Disabled bool   `yaml:"disabled,omitempty" toml:"disabled,omitempty" jsonschema:"description=Do not archive finished reports"`
}

// IngestConfig controls the hot-folder watcher.
type IngestConfig struct {
	Extensions []string `yaml:"extensions,omitempty" toml:"extensions,omitempty" jsonschema:"description=File extensions picked up by ingest"`
	Debounce   Duration `yaml:"debounce,omitempty" toml:"debounce,omitempty" jsonschema:"description=Quiet period before a new file is uploaded"`
}

// TUIConfig holds terminal view settings.
type TUIConfig struct {
	Theme string `yaml:"theme,omitempty" toml:"theme,omitempty" jsonschema:"description=Color theme (kanagawa, gruvbox, terminal)"`
	Icons string `yaml:"icons,omitempty" toml:"icons,omitempty" jsonschema:"description=Icon set,enum=nerd,enum=ascii"`
	// Keys rebinds dashboard actions, e.g. {"export": ["x"]}.
	Keys map[string][]string `yaml:"keys,omitempty" toml:"keys,omitempty" jsonschema:"description=Dashboard key overrides by action name"`
}

// Config is the root of traffisense.yml.
type Config struct {
	Version string        `yaml:"version,omitempty" toml:"version,omitempty" jsonschema:"description=Configuration version (e.g. 1.0)"`
	Backend BackendConfig `yaml:"backend,omitempty" toml:"backend,omitempty" jsonschema:"description=Processing backend location"`
	Session SessionConfig `yaml:"session,omitempty" toml:"session,omitempty" jsonschema:"description=Live session reconnect and alert policy"`
	Player  PlayerConfig  `yaml:"player,omitempty" toml:"player,omitempty" jsonschema:"description=External video player"`
	Archive ArchiveConfig `yaml:"archive,omitempty" toml:"archive,omitempty" jsonschema:"description=Report archive"`
	Ingest  IngestConfig  `yaml:"ingest,omitempty" toml:"ingest,omitempty" jsonschema:"description=Hot-folder ingest"`
	TUI     *TUIConfig    `yaml:"tui,omitempty" toml:"tui,omitempty" jsonschema:"description=Terminal view settings"`

	// Extensions captures all other top-level keys for extensibility.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded traffisense.yml into the provided target struct. The target must be
// a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
