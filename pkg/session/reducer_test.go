package session

import (
	stderrors "errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/stream"
)

func streaming(t *testing.T) State {
	t.Helper()
	s := NewState("clip.mp4", models.DirectionAuto, DefaultConfig().Policy)
	s, effects := Reduce(s, Opened{})
	require.Empty(t, effects)
	require.Equal(t, PhaseStreaming, s.Phase)
	return s
}

func frame(objects ...models.Object) Received {
	if objects == nil {
		objects = []models.Object{}
	}
	return Received{Message: models.FrameMessage{Objects: objects, HasObjects: true}}
}

func TestBackoffSequence(t *testing.T) {
	cfg := DefaultConfig().Backoff
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second}
	for retry, expected := range want {
		assert.Equal(t, expected, ReconnectDelay(cfg, retry), "retry %d", retry)
	}
}

func TestNextBackoffDelayJitter(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second, Multiplier: 2, MaxDelay: 10 * time.Second, Jitter: true}
	rng := rand.New(rand.NewSource(1))
	for attempt := 1; attempt <= 6; attempt++ {
		nominal := ReconnectDelay(cfg, attempt-1)
		got := NextBackoffDelay(cfg, attempt, rng)
		assert.GreaterOrEqual(t, got, nominal/2)
		assert.Less(t, got, nominal*3/2)
	}
	assert.Equal(t, 500*time.Millisecond, NextBackoffDelay(cfg, 1, nil))
	assert.Equal(t, time.Duration(0), NextBackoffDelay(BackoffConfig{}, 3, nil))
}

func TestCloseBeforePayloadSchedulesReconnect(t *testing.T) {
	s := NewState("clip.mp4", models.Direction90, DefaultConfig().Policy)

	var delays []time.Duration
	for i := 0; i < DefaultMaxRetries; i++ {
		var effects []Effect
		s, effects = Reduce(s, OpenFailed{Err: stderrors.New("connection refused")})
		require.Equal(t, PhaseReconnecting, s.Phase)
		require.Len(t, effects, 1)
		sched := effects[0].(ScheduleReconnect)
		assert.Equal(t, i+1, sched.Attempt)
		delays = append(delays, sched.Delay)
		require.Equal(t, i, s.RetryCount, "retry count advances when the timer fires, not when scheduled")
		require.NotNil(t, s.Notice)
		assert.Equal(t, NoticeConnection, s.Notice.Kind)

		s, effects = Reduce(s, RetryDue{})
		require.Equal(t, PhaseConnecting, s.Phase)
		require.Equal(t, i+1, s.RetryCount)
		require.Equal(t, []Effect{OpenChannel{Target: stream.Target{JobID: "clip.mp4", Direction: models.Direction90}}}, effects)
	}

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second}, delays)

	// The sixth failure is terminal.
	s, effects := Reduce(s, OpenFailed{Err: stderrors.New("connection refused")})
	assert.Empty(t, effects)
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Nil(t, s.Report)
	require.NotNil(t, s.Notice)
	assert.Equal(t, errors.ErrCodeConnectionExhausted, s.Notice.Code)
	assert.Equal(t, "Connection to server failed. Please ensure the backend is running.", s.Notice.Text)
}

func TestFailedKeepsExistingErrorNotice(t *testing.T) {
	s := NewState("clip.mp4", models.DirectionAuto, Policy{MaxRetries: 0})
	s = withNotice(s, Notice{Kind: NoticeError, Text: "earlier problem"})

	s, _ = Reduce(s, Closed{})
	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, "earlier problem", s.Notice.Text)
}

func TestOpenResetsRetryCount(t *testing.T) {
	s := NewState("clip.mp4", models.DirectionAuto, DefaultConfig().Policy)
	s, _ = Reduce(s, OpenFailed{})
	s, _ = Reduce(s, RetryDue{})
	require.Equal(t, 1, s.RetryCount)

	s, _ = Reduce(s, Opened{})
	assert.Equal(t, PhaseStreaming, s.Phase)
	assert.Equal(t, 0, s.RetryCount)
	assert.Nil(t, s.Notice)
}

func TestNoReconnectAfterPayload(t *testing.T) {
	s := streaming(t)
	s, _ = Reduce(s, frame(models.Object{ID: 1}))
	require.True(t, s.HasReceivedPayload)

	s, effects := Reduce(s, Closed{Err: stderrors.New("abnormal closure")})
	assert.Empty(t, effects)
	assert.Equal(t, PhaseFinished, s.Phase)
	assert.Nil(t, s.Report)
	assert.Equal(t, 0, s.RetryCount)
}

func TestStatusDoesNotLatch(t *testing.T) {
	s := streaming(t)
	s, _ = Reduce(s, Received{Message: models.StatusMessage{Text: "Processing"}})
	assert.False(t, s.HasReceivedPayload)
	assert.Equal(t, "Processing", s.StatusText)

	// Progress-only frames do not latch either
	s, _ = Reduce(s, Received{Message: models.FrameMessage{HasProgress: true, CurrentFrame: 1, TotalFrames: 10}})
	assert.False(t, s.HasReceivedPayload)

	s, effects := Reduce(s, Closed{})
	assert.Equal(t, PhaseReconnecting, s.Phase)
	assert.Len(t, effects, 1)
}

func TestProgressClamp(t *testing.T) {
	tests := []struct {
		name          string
		current       int
		total         int
		wantRatio     float64
		wantUnchanged bool
	}{
		{"halfway", 50, 100, 0.5, false},
		{"overshoot", 150, 100, 1, false},
		{"negative", -5, 100, 0, false},
		{"zero total", 10, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := streaming(t)
			s.ProgressRatio = 0.25
			s, _ = Reduce(s, Received{Message: models.FrameMessage{HasProgress: true, CurrentFrame: tt.current, TotalFrames: tt.total}})
			if tt.wantUnchanged {
				assert.Equal(t, 0.25, s.ProgressRatio)
				return
			}
			assert.Equal(t, tt.wantRatio, s.ProgressRatio)
			assert.GreaterOrEqual(t, s.ProgressRatio, 0.0)
			assert.LessOrEqual(t, s.ProgressRatio, 1.0)
		})
	}
}

func TestScenarioStatusObjectsImage(t *testing.T) {
	s := streaming(t)
	var all []Effect

	events := []Event{
		Received{Message: models.StatusMessage{Text: "loading"}},
		frame(
			models.Object{ID: 5},
			models.Object{ID: 7, IsWrongWay: true, IsNewViolation: true},
			models.Object{ID: 9},
		),
		Received{Message: models.FrameMessage{Image: []byte("frame1"), HasImage: true}},
	}
	for _, ev := range events {
		var effects []Effect
		s, effects = Reduce(s, ev)
		all = append(all, effects...)
	}

	assert.True(t, s.HasReceivedPayload)
	assert.Equal(t, LiveStats{TotalObjects: 3, WrongWayObjects: 1}, s.LiveStats)
	require.NotNil(t, s.Notice)
	assert.Equal(t, NoticeViolation, s.Notice.Kind)
	assert.Equal(t, 7, s.Notice.ViolationID)
	assert.Contains(t, s.Notice.Text, "7")
	assert.Equal(t, []byte("frame1"), s.LatestFrame)
	assert.Equal(t, PhaseStreaming, s.Phase)
	assert.Equal(t, "loading", s.StatusText)

	require.Len(t, all, 1)
	expiry := all[0].(ScheduleNoticeExpiry)
	assert.Equal(t, s.Notice.Seq, expiry.Seq)
	assert.Equal(t, 3*time.Second, expiry.After)

	s, _ = Reduce(s, NoticeExpired{Seq: expiry.Seq})
	assert.Nil(t, s.Notice)
}

func TestLastNewViolationWins(t *testing.T) {
	s := streaming(t)
	s, effects := Reduce(s, frame(
		models.Object{ID: 3, IsNewViolation: true},
		models.Object{ID: 4, IsNewViolation: true},
	))
	require.Len(t, effects, 1)
	assert.Equal(t, 4, s.Notice.ViolationID)

	// An older expiry does not clear the newer notice
	s, _ = Reduce(s, NoticeExpired{Seq: s.Notice.Seq - 1})
	assert.NotNil(t, s.Notice)
}

func TestReportFinishesImmediately(t *testing.T) {
	s := streaming(t)
	s, _ = Reduce(s, frame(models.Object{ID: 1}))

	report := &models.Report{Total: 4, Violations: 1}
	s, effects := Reduce(s, Received{Message: models.ReportMessage{Report: report}})
	assert.Equal(t, PhaseFinished, s.Phase)
	assert.Same(t, report, s.Report)
	assert.Equal(t, []Effect{CloseChannel{}}, effects)

	// Anything after the report is ignored
	after := s
	after, effects = Reduce(after, Received{Message: models.StatusMessage{Text: "late"}})
	assert.Empty(t, effects)
	after, _ = Reduce(after, frame(models.Object{ID: 2}, models.Object{ID: 3}))
	after, _ = Reduce(after, Closed{})
	assert.Equal(t, s.StatusText, after.StatusText)
	assert.Equal(t, s.LiveStats, after.LiveStats)
	assert.Equal(t, PhaseFinished, after.Phase)
}

func TestProtocolErrorBeforePayload(t *testing.T) {
	s := streaming(t)
	s, effects := Reduce(s, Received{Message: models.ErrorMessage{Text: "File not found"}})
	assert.Equal(t, []Effect{CloseChannel{}}, effects)
	assert.Equal(t, PhaseFailed, s.Phase)
	require.NotNil(t, s.Notice)
	assert.Equal(t, errors.ErrCodeProtocol, s.Notice.Code)
	assert.Equal(t, "File not found", s.Notice.Text)

	// The close that follows does not schedule a reconnect
	s, effects = Reduce(s, Closed{})
	assert.Empty(t, effects)
	assert.Equal(t, PhaseFailed, s.Phase)
}

func TestProtocolErrorAfterPayload(t *testing.T) {
	s := streaming(t)
	s, _ = Reduce(s, frame(models.Object{ID: 1}))

	s, effects := Reduce(s, Received{Message: models.ErrorMessage{Text: "decoder crashed"}})
	assert.Equal(t, []Effect{CloseChannel{}}, effects)
	assert.Nil(t, s.Notice, "late errors do not mask a successful run")
	assert.Equal(t, PhaseStreaming, s.Phase)

	s, _ = Reduce(s, Closed{})
	assert.Equal(t, PhaseFinished, s.Phase)
}

func TestUnknownMessageIgnored(t *testing.T) {
	s := streaming(t)
	next, effects := Reduce(s, Received{Message: models.UnknownMessage{Type: "heartbeat"}})
	assert.Empty(t, effects)
	assert.Equal(t, s, next)
}

func TestRetryDueOutsideReconnectingIgnored(t *testing.T) {
	s := streaming(t)
	next, effects := Reduce(s, RetryDue{})
	assert.Empty(t, effects)
	assert.Equal(t, s, next)
}

func TestViolationSelectedAfterFinish(t *testing.T) {
	s := streaming(t)
	s, _ = Reduce(s, Received{Message: models.ReportMessage{Report: &models.Report{}}})
	s, _ = Reduce(s, ViolationSelected{ID: 12})
	require.NotNil(t, s.ActiveViolationID)
	assert.Equal(t, 12, *s.ActiveViolationID)
}

// TestInvariantsHoldForRandomEvents drives the reducer with random event
// sequences and checks the report and retry invariants after every step.
func TestInvariantsHoldForRandomEvents(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	gen := func() Event {
		switch rng.Intn(9) {
		case 0:
			return Opened{}
		case 1:
			return OpenFailed{}
		case 2:
			return Closed{}
		case 3:
			return RetryDue{}
		case 4:
			return frame(models.Object{ID: rng.Intn(5), IsNewViolation: rng.Intn(2) == 0})
		case 5:
			return Received{Message: models.FrameMessage{HasProgress: true, CurrentFrame: rng.Intn(200) - 20, TotalFrames: rng.Intn(120)}}
		case 6:
			return Received{Message: models.ErrorMessage{Text: "boom"}}
		case 7:
			return Received{Message: models.ReportMessage{Report: &models.Report{}}}
		default:
			return Received{Message: models.StatusMessage{Text: "working"}}
		}
	}

	for run := 0; run < 200; run++ {
		s := NewState("clip.mp4", models.DirectionAuto, DefaultConfig().Policy)
		for step := 0; step < 40; step++ {
			prev := s
			s, _ = Reduce(s, gen())

			if s.Report != nil {
				require.Equal(t, PhaseFinished, s.Phase)
			}
			if s.Phase == PhaseFailed {
				require.Nil(t, s.Report)
			}
			if prev.HasReceivedPayload {
				require.True(t, s.HasReceivedPayload, "latch never resets")
				require.NotEqual(t, PhaseReconnecting, s.Phase)
				require.LessOrEqual(t, s.RetryCount, prev.RetryCount)
			}
			require.False(t, math.IsNaN(s.ProgressRatio))
			require.GreaterOrEqual(t, s.ProgressRatio, 0.0)
			require.LessOrEqual(t, s.ProgressRatio, 1.0)
			require.LessOrEqual(t, s.RetryCount, DefaultMaxRetries)
			if prev.Phase.Terminal() {
				require.Equal(t, prev.Phase, s.Phase)
			}
		}
	}
}

func TestSeekPosition(t *testing.T) {
	assert.Equal(t, 3.0, SeekPosition(5.0))
	assert.Equal(t, 0.0, SeekPosition(1.0))
	assert.Equal(t, 0.0, SeekPosition(math.NaN()))
	assert.Equal(t, 0.0, SeekPosition(-4))
	assert.Equal(t, 9.5, SeekPositionWithPreRoll(10, 0.5))
}
