package stream

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hpcloud/tail"

	"github.com/traffisense/core/errors"
)

// ReplayDialer plays a JSONL recording back as a stream: one payload per
// line, delivered in file order. Every Dial starts again from the top of the
// file, whatever the target.
type ReplayDialer struct {
	Path string
	// Interval paces delivery between lines. Zero delivers as fast as the
	// consumer reads.
	Interval time.Duration
	// Follow keeps the channel open at end of file and waits for more lines,
	// so a recording still being written can be watched live.
	Follow bool
}

// NewReplayDialer returns a dialer replaying path.
func NewReplayDialer(path string, interval time.Duration) *ReplayDialer {
	return &ReplayDialer{Path: path, Interval: interval}
}

// Dial implements Dialer.
func (d *ReplayDialer) Dial(ctx context.Context, target Target) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(d.Path); err != nil {
		return nil, errors.Transport("file://"+d.Path, err)
	}

	t, err := tail.TailFile(d.Path, tail.Config{
		Follow:    d.Follow,
		ReOpen:    d.Follow,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return nil, errors.Transport("file://"+d.Path, err)
	}
	return &replayChannel{tail: t, interval: d.Interval, path: d.Path, done: make(chan struct{})}, nil
}

type replayChannel struct {
	tail     *tail.Tail
	interval time.Duration
	path     string
	started  bool

	done      chan struct{}
	closeOnce sync.Once
}

// Receive returns the next non-blank line.
func (c *replayChannel) Receive(ctx context.Context) ([]byte, error) {
	if c.started && c.interval > 0 {
		timer := time.NewTimer(c.interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-c.done:
			timer.Stop()
			return nil, ErrClosed
		}
	}
	c.started = true

	for {
		select {
		case line, ok := <-c.tail.Lines:
			if !ok {
				return nil, ErrClosed
			}
			if line.Err != nil {
				return nil, errors.Transport("file://"+c.path, line.Err)
			}
			text := strings.TrimSpace(line.Text)
			if text == "" {
				continue
			}
			return []byte(text), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, ErrClosed
		}
	}
}

// Close stops the tail. Safe to call more than once.
func (c *replayChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.tail.Stop()
		c.tail.Cleanup()
	})
	return err
}
