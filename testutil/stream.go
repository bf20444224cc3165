package testutil

import (
	"context"
	"sync"

	"github.com/traffisense/core/pkg/stream"
)

// FakeChannel is an in-memory stream.Channel driven by the test.
type FakeChannel struct {
	Target stream.Target

	msgs      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	closedErr error
	closes    int
}

// NewFakeChannel returns an open channel.
func NewFakeChannel(target stream.Target) *FakeChannel {
	return &FakeChannel{
		Target: target,
		msgs:   make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

// Send queues a payload for Receive.
func (c *FakeChannel) Send(payload []byte) {
	select {
	case <-c.closed:
	case c.msgs <- payload:
	}
}

// CloseRemote closes the channel as if the backend hung up. Queued payloads
// are still delivered first.
func (c *FakeChannel) CloseRemote(err error) {
	c.mu.Lock()
	if err == nil {
		err = stream.ErrClosed
	}
	c.closedErr = err
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
}

// Receive implements stream.Channel.
func (c *FakeChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-c.msgs:
		return msg, nil
	default:
	}
	select {
	case msg := <-c.msgs:
		return msg, nil
	case <-c.closed:
		select {
		case msg := <-c.msgs:
			return msg, nil
		default:
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.closedErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements stream.Channel.
func (c *FakeChannel) Close() error {
	c.mu.Lock()
	c.closes++
	if c.closedErr == nil {
		c.closedErr = stream.ErrClosed
	}
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Closed reports whether Close or CloseRemote was called.
func (c *FakeChannel) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// CloseCalls counts local Close calls.
func (c *FakeChannel) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// DialResult scripts one Dial call: either an error or a channel.
type DialResult struct {
	Err error
}

// FakeDialer records dials and hands out FakeChannels. Scripted results are
// consumed in order; once exhausted every dial succeeds.
type FakeDialer struct {
	mu       sync.Mutex
	script   []DialResult
	targets  []stream.Target
	channels []*FakeChannel
	holds    []chan struct{}
	dialed   chan *FakeChannel
	attempts chan stream.Target
}

// NewFakeDialer returns a dialer that plays script before succeeding.
func NewFakeDialer(script ...DialResult) *FakeDialer {
	return &FakeDialer{
		script:   script,
		dialed:   make(chan *FakeChannel, 64),
		attempts: make(chan stream.Target, 64),
	}
}

// FailNext appends n failing dials to the script.
func (d *FakeDialer) FailNext(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < n; i++ {
		d.script = append(d.script, DialResult{Err: err})
	}
}

// Hold makes the next successful Dial block, after its attempt is reported,
// until release is called. A held dial returns its channel even when its
// context was cancelled in the meantime, like a handshake that completes
// after the caller moved on.
func (d *FakeDialer) Hold() (release func()) {
	gate := make(chan struct{})
	d.mu.Lock()
	d.holds = append(d.holds, gate)
	d.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Dial implements stream.Dialer.
func (d *FakeDialer) Dial(ctx context.Context, target stream.Target) (stream.Channel, error) {
	d.mu.Lock()
	d.targets = append(d.targets, target)
	var result DialResult
	if len(d.script) > 0 {
		result = d.script[0]
		d.script = d.script[1:]
	}
	var gate chan struct{}
	if result.Err == nil && len(d.holds) > 0 {
		gate = d.holds[0]
		d.holds = d.holds[1:]
	}
	d.mu.Unlock()

	d.attempts <- target
	if result.Err != nil {
		return nil, result.Err
	}
	if gate != nil {
		<-gate
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := NewFakeChannel(target)
	d.mu.Lock()
	d.channels = append(d.channels, ch)
	d.mu.Unlock()
	d.dialed <- ch
	return ch, nil
}

// Dialed delivers every channel handed out, in order.
func (d *FakeDialer) Dialed() <-chan *FakeChannel {
	return d.dialed
}

// Attempts delivers the target of every Dial call, successful or not.
func (d *FakeDialer) Attempts() <-chan stream.Target {
	return d.attempts
}

// Targets returns every target dialed so far.
func (d *FakeDialer) Targets() []stream.Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]stream.Target(nil), d.targets...)
}

// Channels returns every channel handed out so far.
func (d *FakeDialer) Channels() []*FakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeChannel(nil), d.channels...)
}
