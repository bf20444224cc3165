package backend

import (
	"github.com/traffisense/core/config"
)

// New returns a Client for the backend named in cfg.
func New(cfg *config.Config) Client {
	if cfg == nil {
		cfg = config.Default()
	}
	return NewHTTPClient(cfg.Backend.URL, cfg.Backend.RequestTimeout.D())
}
