package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/traffisense/core/errors"
)

// Defaults for the session controller and backend client.
const (
	DefaultBackendURL       = "http://127.0.0.1:8000"
	DefaultMaxRetries       = 5
	DefaultBaseDelay        = time.Second
	DefaultCapDelay         = 10 * time.Second
	DefaultAlertDuration    = 3 * time.Second
	DefaultPreRoll          = 2.0
	DefaultRequestTimeout   = 10 * time.Minute
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultIngestDebounce   = 2 * time.Second
)

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Backend.URL == "" {
		c.Backend.URL = DefaultBackendURL
	}
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.Backend.HandshakeTimeout == 0 {
		c.Backend.HandshakeTimeout = Duration(DefaultHandshakeTimeout)
	}
	if c.Session.MaxRetries == 0 {
		c.Session.MaxRetries = DefaultMaxRetries
	}
	if c.Session.BaseDelay == 0 {
		c.Session.BaseDelay = Duration(DefaultBaseDelay)
	}
	if c.Session.CapDelay == 0 {
		c.Session.CapDelay = Duration(DefaultCapDelay)
	}
	if c.Session.AlertDuration == 0 {
		c.Session.AlertDuration = Duration(DefaultAlertDuration)
	}
	if c.Session.PreRoll == 0 {
		c.Session.PreRoll = DefaultPreRoll
	}
	if c.Session.Direction == "" {
		c.Session.Direction = "auto"
	}
	if c.Player.Command == "" {
		c.Player.Command = "mpv"
		c.Player.Args = []string{"--start={seek}", "{url}"}
	}
	if len(c.Ingest.Extensions) == 0 {
		c.Ingest.Extensions = []string{".mp4", ".mov", ".avi", ".mkv"}
	}
	if c.Ingest.Debounce == 0 {
		c.Ingest.Debounce = Duration(DefaultIngestDebounce)
	}
	if c.TUI == nil {
		c.TUI = &TUIConfig{}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validateURL("backend.url", c.Backend.URL, "http", "https"); err != nil {
		return err
	}
	if c.Backend.StreamURL != "" {
		if err := validateURL("backend.stream_url", c.Backend.StreamURL, "ws", "wss"); err != nil {
			return err
		}
	}

	if c.Session.MaxRetries < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "session.max_retries cannot be negative").
			WithDetail("max_retries", c.Session.MaxRetries)
	}
	if c.Session.BaseDelay < 0 || c.Session.CapDelay < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "session delays cannot be negative")
	}
	if c.Session.CapDelay < c.Session.BaseDelay {
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("session.cap_delay (%s) is shorter than session.base_delay (%s)",
				c.Session.CapDelay.D(), c.Session.BaseDelay.D()))
	}
	if c.Session.PreRoll < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "session.pre_roll cannot be negative")
	}
	switch c.Session.Direction {
	case "auto", "0", "90", "180", "270":
	default:
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("invalid session.direction %q (must be auto, 0, 90, 180 or 270)", c.Session.Direction)).
			WithDetail("direction", c.Session.Direction)
	}

	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid %s", field)).
			WithDetail(field, raw)
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme && u.Host != "" {
			return nil
		}
	}
	return errors.New(errors.ErrCodeConfigValidation,
		fmt.Sprintf("%s must be an absolute %v URL, got %q", field, schemes, raw)).
		WithDetail(field, raw)
}
