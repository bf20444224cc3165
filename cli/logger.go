package cli

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/traffisense/core/logging"
)

// LoggerOption configures a standalone logger.
type LoggerOption func(*logrus.Logger)

// WithOutput sets the logger output.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *logrus.Logger) {
		l.SetOutput(w)
	}
}

// WithLevel sets the log level.
func WithLevel(level logrus.Level) LoggerOption {
	return func(l *logrus.Logger) {
		l.SetLevel(level)
	}
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter logrus.Formatter) LoggerOption {
	return func(l *logrus.Logger) {
		l.SetFormatter(formatter)
	}
}

// FromOptions maps --verbose and --json onto logger options.
func FromOptions(opts CommandOptions) []LoggerOption {
	var out []LoggerOption
	if opts.Verbose {
		out = append(out, WithLevel(logrus.DebugLevel))
	}
	if opts.JSONOutput {
		out = append(out, WithFormatter(&logrus.JSONFormatter{}))
	}
	return out
}

// NewLogger creates a logger that is not tied to the component registry,
// for long-running processes such as the stub backend.
func NewLogger(opts ...LoggerOption) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logging.TextFormatter{})

	for _, opt := range opts {
		opt(logger)
	}
	return logger
}
