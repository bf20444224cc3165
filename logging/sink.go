package logging

import (
	"io"
	"os"
	"sync"
)

// stderrSink is the shared stderr destination of every component logger.
// The dashboard mutes it while it owns the terminal.
type stderrSink struct {
	mu    sync.RWMutex
	w     io.Writer
	muted int
}

var sink = &stderrSink{w: os.Stderr}

func (s *stderrSink) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.muted > 0 {
		return len(p), nil
	}
	return s.w.Write(p)
}

// SetGlobalOutput replaces the stderr destination of every logger.
func SetGlobalOutput(w io.Writer) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.w = w
}

// GetGlobalOutput returns the shared writer handed to loggers.
func GetGlobalOutput() io.Writer {
	return sink
}

// Mute silences stderr logging until the returned function is called.
// Calls nest; file sinks keep writing.
func Mute() (unmute func()) {
	sink.mu.Lock()
	sink.muted++
	sink.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sink.mu.Lock()
			sink.muted--
			sink.mu.Unlock()
		})
	}
}
