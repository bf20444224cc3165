package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/logging"
	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/stream"
)

// Controller owns at most one live session at a time. Every state change
// happens on a single event loop goroutine; channel readers and timers post
// events tagged with the session generation and channel sequence they
// belong to, and the loop drops anything that no longer matches.
type Controller struct {
	dialer stream.Dialer
	cfg    Config
	log    *logrus.Entry
	sched  Scheduler
	rng    *rand.Rand

	actions   chan func()
	closed    chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	state State
	subs  map[chan State]struct{}
	done  chan struct{}

	// Owned by the event loop.
	parent      context.Context
	ctx         context.Context
	cancel      context.CancelFunc
	generation  uint64
	conn        uint64
	channel     stream.Channel
	retryTimer  Timer
	noticeTimer Timer
	doneClosed  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger overrides the controller logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Controller) { c.log = log }
}

// WithScheduler replaces the wall-clock timer source.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithRand sets the jitter source.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rng = r }
}

// NewController creates a controller and starts its event loop. Call Close
// to release it.
func NewController(dialer stream.Dialer, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		dialer:   dialer,
		cfg:      cfg,
		sched:    realScheduler{},
		actions:  make(chan func(), 64),
		closed:   make(chan struct{}),
		loopDone: make(chan struct{}),
		subs:     make(map[chan State]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.NewLogger("session")
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case fn := <-c.actions:
			fn()
		case <-c.closed:
			c.teardown()
			c.mu.Lock()
			for ch := range c.subs {
				delete(c.subs, ch)
				close(ch)
			}
			c.mu.Unlock()
			return
		}
	}
}

// enqueue hands fn to the event loop. It returns false once the controller
// is closed.
func (c *Controller) enqueue(fn func()) bool {
	select {
	case c.actions <- fn:
		return true
	case <-c.closed:
		return false
	}
}

// do runs fn on the event loop and waits for it.
func (c *Controller) do(fn func()) bool {
	finished := make(chan struct{})
	if !c.enqueue(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-c.loopDone:
		return false
	}
}

// post delivers ev if it still belongs to generation gen and, when conn is
// non-zero, to channel conn.
func (c *Controller) post(gen, conn uint64, ev Event) {
	c.enqueue(func() {
		if gen != c.generation || (conn != 0 && conn != c.conn) {
			c.log.WithFields(eventFields(ev)).WithField("generation", gen).Debug("Dropping stale event")
			return
		}
		c.apply(ev)
	})
}

// Start begins a session for jobID, replacing any current one.
func (c *Controller) Start(ctx context.Context, jobID string, dir models.Direction) error {
	if jobID == "" {
		return errors.InvalidInput("job id is required")
	}
	if dir == "" {
		dir = models.DirectionAuto
	}
	if !c.do(func() { c.startSession(ctx, jobID, dir) }) {
		return errors.New(errors.ErrCodeInternal, "controller is closed")
	}
	return nil
}

// SetDirection restarts the current session with a new direction hint.
func (c *Controller) SetDirection(dir models.Direction) error {
	var err error
	ok := c.do(func() {
		if c.state.JobID == "" {
			err = errors.InvalidInput("no active session")
			return
		}
		if dir == c.state.Direction && !c.state.Phase.Terminal() {
			return
		}
		c.startSession(c.parent, c.state.JobID, dir)
	})
	if !ok {
		return errors.New(errors.ErrCodeInternal, "controller is closed")
	}
	return err
}

// Reset destroys the current session: the channel is closed, pending timers
// are cancelled and nothing from the old session mutates state afterwards.
func (c *Controller) Reset() {
	c.do(func() {
		c.teardown()
		c.publish(State{Generation: c.generation})
	})
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe returns a channel receiving every published state. Slow
// subscribers miss intermediate states but always see the latest one.
func (c *Controller) Subscribe() chan State {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan State, 16)
	select {
	case <-c.closed:
		close(ch)
		return ch
	default:
	}
	c.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (c *Controller) Unsubscribe(ch chan State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[ch]; !ok {
		return
	}
	delete(c.subs, ch)
	close(ch)
}

// Done is closed when the current session reaches Finished or Failed, is
// superseded, or the controller is closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.done
}

// SeekToViolation marks the violation as active and starts playback of the
// recording shortly before t. Player failures are logged, not returned.
func (c *Controller) SeekToViolation(ctx context.Context, player Player, videoURL string, violationID int, t float64) {
	c.do(func() {
		c.apply(ViolationSelected{ID: violationID})
	})

	position := SeekPositionWithPreRoll(t, c.cfg.PreRoll)
	log := c.log.WithFields(logrus.Fields{
		"violation": violationID,
		"position":  position,
	})
	if player == nil || videoURL == "" {
		log.Warn("No recording to play")
		return
	}
	if err := player.Play(ctx, videoURL, position); err != nil {
		log.WithError(err).Warn("Playback failed")
		return
	}
	log.Info("Seeking to violation")
}

// Close tears down the session and stops the event loop.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	<-c.loopDone
}

func (c *Controller) startSession(ctx context.Context, jobID string, dir models.Direction) {
	c.teardown()
	if ctx == nil {
		ctx = context.Background()
	}
	c.parent = ctx
	c.ctx, c.cancel = context.WithCancel(ctx)

	s := NewState(jobID, dir, c.cfg.Policy)
	s.Generation = c.generation
	s.InstanceID = uuid.NewString()

	c.mu.Lock()
	c.done = make(chan struct{})
	c.mu.Unlock()
	c.doneClosed = false

	c.log.WithFields(logrus.Fields{
		"job":        jobID,
		"direction":  dir.String(),
		"instance":   s.InstanceID,
		"generation": s.Generation,
	}).Info("Starting session")

	c.publish(s)
	c.open(s.Target())
}

// teardown closes the channel, stops timers and bumps the generation so
// in-flight callbacks of the old session are dropped.
func (c *Controller) teardown() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.stopTimer(&c.retryTimer)
	c.stopTimer(&c.noticeTimer)
	c.closeChannel()
	c.generation++
	c.conn = 0
	c.closeDone()
}

func (c *Controller) apply(ev Event) {
	prev := c.state
	next, effects := Reduce(prev, ev)
	c.publish(next)

	for _, eff := range effects {
		c.execute(eff)
	}

	if !prev.Phase.Terminal() && next.Phase.Terminal() {
		c.stopTimer(&c.retryTimer)
		c.closeChannel()
		c.closeDone()

		entry := c.log.WithFields(logrus.Fields{
			"job":      next.JobID,
			"instance": next.InstanceID,
			"phase":    next.Phase.String(),
		})
		if next.Phase == PhaseFailed && next.Notice != nil {
			entry = entry.WithField("reason", next.Notice.Text)
		}
		entry.Info("Session ended")
	}
}

func (c *Controller) execute(eff Effect) {
	gen := c.generation
	switch e := eff.(type) {
	case CloseChannel:
		c.closeChannel()

	case OpenChannel:
		c.open(e.Target)

	case ScheduleReconnect:
		delay := e.Delay
		if c.cfg.Backoff.Jitter {
			delay = NextBackoffDelay(c.cfg.Backoff, e.Attempt, c.rng)
		}
		c.stopTimer(&c.retryTimer)
		c.retryTimer = c.sched.AfterFunc(delay, func() {
			c.post(gen, 0, RetryDue{})
		})
		c.log.WithFields(logrus.Fields{
			"attempt": e.Attempt,
			"delay":   delay,
		}).Info("Reconnect scheduled")

	case ScheduleNoticeExpiry:
		c.stopTimer(&c.noticeTimer)
		seq := e.Seq
		c.noticeTimer = c.sched.AfterFunc(e.After, func() {
			c.post(gen, 0, NoticeExpired{Seq: seq})
		})
	}
}

// open dials a new channel, closing any previous one first so a session
// never has two live channels.
func (c *Controller) open(target stream.Target) {
	c.closeChannel()
	c.conn++
	gen, conn, ctx := c.generation, c.conn, c.ctx

	go func() {
		ch, err := c.dialer.Dial(ctx, target)
		if err != nil {
			c.log.WithError(err).WithField("job", target.JobID).Warn("Failed to open stream")
			c.post(gen, conn, OpenFailed{Err: err})
			return
		}
		accepted := c.enqueue(func() {
			if gen != c.generation || conn != c.conn {
				_ = ch.Close()
				return
			}
			c.channel = ch
			go c.read(ctx, gen, conn, ch)
			c.apply(Opened{})
		})
		if !accepted {
			_ = ch.Close()
		}
	}()
}

func (c *Controller) read(ctx context.Context, gen, conn uint64, ch stream.Channel) {
	for {
		payload, err := ch.Receive(ctx)
		if err != nil {
			c.post(gen, conn, Closed{Err: err})
			return
		}
		msg, err := models.DecodeMessage(payload)
		if err != nil {
			c.log.WithError(err).Warn("Dropping malformed message")
			continue
		}
		c.post(gen, conn, Received{Message: msg})
	}
}

func (c *Controller) closeChannel() {
	if c.channel == nil {
		return
	}
	if err := c.channel.Close(); err != nil {
		c.log.WithError(err).Debug("Error closing stream")
	}
	c.channel = nil
}

func (c *Controller) closeDone() {
	if c.doneClosed {
		return
	}
	c.mu.Lock()
	close(c.done)
	c.mu.Unlock()
	c.doneClosed = true
}

func (c *Controller) stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// publish stores s and fans it out without blocking the loop.
func (c *Controller) publish(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	c.mu.RLock()
	defer c.mu.RUnlock()
	for ch := range c.subs {
		select {
		case ch <- s:
		default:
			// Full: drop the oldest so the latest state is never lost.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// eventFields describes ev for logging. Received events also name the
// message kind.
func eventFields(ev Event) logrus.Fields {
	fields := logrus.Fields{"event": eventName(ev)}
	if r, ok := ev.(Received); ok {
		fields["message"] = models.Kind(r.Message)
	}
	return fields
}

func eventName(ev Event) string {
	switch ev.(type) {
	case Opened:
		return "opened"
	case OpenFailed:
		return "open_failed"
	case Received:
		return "received"
	case Closed:
		return "closed"
	case RetryDue:
		return "retry_due"
	case NoticeExpired:
		return "notice_expired"
	case ViolationSelected:
		return "violation_selected"
	}
	return "unknown"
}
