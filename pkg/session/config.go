package session

import (
	"time"

	"github.com/traffisense/core/config"
)

// Defaults for the live session policy.
const (
	DefaultMaxRetries    = 5
	DefaultBaseDelay     = time.Second
	DefaultCapDelay      = 10 * time.Second
	DefaultAlertDuration = 3 * time.Second
	DefaultPreRoll       = 2.0
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Policy is the part of the configuration the reducer needs. It travels
// with the state so Reduce stays a function of its arguments.
type Policy struct {
	MaxRetries    int
	Backoff       BackoffConfig
	AlertDuration time.Duration
}

// Config tunes a Controller.
type Config struct {
	Policy
	// PreRoll is subtracted from a violation timestamp before seeking.
	PreRoll float64
}

// DefaultConfig returns the documented reconnect and alert policy.
func DefaultConfig() Config {
	return Config{
		Policy: Policy{
			MaxRetries: DefaultMaxRetries,
			Backoff: BackoffConfig{
				InitialDelay: DefaultBaseDelay,
				Multiplier:   2.0,
				MaxDelay:     DefaultCapDelay,
			},
			AlertDuration: DefaultAlertDuration,
		},
		PreRoll: DefaultPreRoll,
	}
}

// ConfigFrom maps the session section of traffisense.yml. Unset values keep
// their defaults.
func ConfigFrom(cfg *config.Config) Config {
	out := DefaultConfig()
	if cfg == nil {
		return out
	}
	s := cfg.Session
	if s.MaxRetries > 0 {
		out.MaxRetries = s.MaxRetries
	}
	if s.BaseDelay > 0 {
		out.Backoff.InitialDelay = s.BaseDelay.D()
	}
	if s.CapDelay > 0 {
		out.Backoff.MaxDelay = s.CapDelay.D()
	}
	if s.AlertDuration > 0 {
		out.AlertDuration = s.AlertDuration.D()
	}
	if s.PreRoll > 0 {
		out.PreRoll = s.PreRoll
	}
	out.Backoff.Jitter = s.Jitter
	return out
}
