package stream

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/logging"
)

// Recorder wraps a Dialer and appends every payload received on its channels
// to w, one per line, in the format ReplayDialer reads.
type Recorder struct {
	next Dialer
	log  *logrus.Entry

	mu sync.Mutex
	w  io.Writer
}

// NewRecorder records everything next delivers into w.
func NewRecorder(next Dialer, w io.Writer) *Recorder {
	return &Recorder{next: next, w: w, log: logging.NewLogger("stream")}
}

// RecordToFile creates (or truncates) path and records into it. The returned
// closer flushes and closes the file.
func RecordToFile(next Dialer, path string) (*Recorder, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create recording directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create recording").
			WithDetail("path", path)
	}
	return NewRecorder(next, f), f, nil
}

// Dial implements Dialer.
func (r *Recorder) Dial(ctx context.Context, target Target) (Channel, error) {
	ch, err := r.next.Dial(ctx, target)
	if err != nil {
		return nil, err
	}
	return &recordingChannel{Channel: ch, rec: r}, nil
}

func (r *Recorder) write(payload []byte) error {
	// JSON needs no raw newlines, so stripping them keeps one payload per line.
	line := bytes.ReplaceAll(bytes.TrimSpace(payload), []byte("\n"), nil)
	line = bytes.ReplaceAll(line, []byte("\r"), nil)
	if len(line) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(line)+1)
	buf = append(append(buf, line...), '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.w.Write(buf); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write recording")
	}
	return nil
}

type recordingChannel struct {
	Channel
	rec *Recorder
}

func (c *recordingChannel) Receive(ctx context.Context) ([]byte, error) {
	payload, err := c.Channel.Receive(ctx)
	if err != nil {
		return nil, err
	}
	if werr := c.rec.write(payload); werr != nil {
		c.rec.log.WithError(werr).Warn("Recording payload failed")
	}
	return payload, nil
}
