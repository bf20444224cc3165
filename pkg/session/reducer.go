package session

import (
	"fmt"
	"time"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/stream"
)

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// Opened reports that the channel for the current attempt is open.
type Opened struct{}

// OpenFailed reports that dialing the channel failed.
type OpenFailed struct{ Err error }

// Received carries one decoded message from the channel.
type Received struct{ Message models.Message }

// Closed reports that the channel closed, normally or not.
type Closed struct{ Err error }

// RetryDue fires when a scheduled reconnect delay has elapsed.
type RetryDue struct{}

// NoticeExpired fires when a violation notice's display time is over.
type NoticeExpired struct{ Seq uint64 }

// ViolationSelected records the violation the operator is inspecting.
type ViolationSelected struct{ ID int }

func (Opened) isEvent()            {}
func (OpenFailed) isEvent()        {}
func (Received) isEvent()          {}
func (Closed) isEvent()            {}
func (RetryDue) isEvent()          {}
func (NoticeExpired) isEvent()     {}
func (ViolationSelected) isEvent() {}

// Effect is work Reduce asks the controller to perform.
type Effect interface {
	isEffect()
}

// CloseChannel closes the live channel.
type CloseChannel struct{}

// ScheduleReconnect arms the reconnect timer. Attempt is 1-based.
type ScheduleReconnect struct {
	Delay   time.Duration
	Attempt int
}

// OpenChannel dials a new channel for the target.
type OpenChannel struct{ Target stream.Target }

// ScheduleNoticeExpiry arms the timer that clears notice Seq.
type ScheduleNoticeExpiry struct {
	Seq   uint64
	After time.Duration
}

func (CloseChannel) isEffect()         {}
func (ScheduleReconnect) isEffect()    {}
func (OpenChannel) isEffect()          {}
func (ScheduleNoticeExpiry) isEffect() {}

// Reduce applies one event to a session state. It is pure: all I/O and
// timing are returned as effects.
func Reduce(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Opened:
		if s.Phase != PhaseConnecting {
			return s, nil
		}
		s.Phase = PhaseStreaming
		s.RetryCount = 0
		s.Notice = nil
		return s, nil

	case OpenFailed:
		return onClosed(s)

	case Closed:
		return onClosed(s)

	case Received:
		// Messages only count on an open channel of a live session.
		if s.Phase != PhaseStreaming {
			return s, nil
		}
		return onMessage(s, e.Message)

	case RetryDue:
		if s.Phase != PhaseReconnecting {
			return s, nil
		}
		s.RetryCount++
		s.Phase = PhaseConnecting
		return s, []Effect{OpenChannel{Target: s.Target()}}

	case NoticeExpired:
		if s.Notice != nil && s.Notice.Kind == NoticeViolation && s.Notice.Seq == e.Seq {
			s.Notice = nil
		}
		return s, nil

	case ViolationSelected:
		id := e.ID
		s.ActiveViolationID = &id
		return s, nil
	}
	return s, nil
}

// onClosed decides between finishing, retrying and failing. Closure after
// the payload latch is taken as normal completion.
func onClosed(s State) (State, []Effect) {
	if s.Phase.Terminal() || s.Phase == PhaseIdle || s.Phase == PhaseReconnecting {
		return s, nil
	}

	if s.HasReceivedPayload {
		s.Phase = PhaseFinished
		return s, nil
	}

	if s.RetryCount < s.Policy.MaxRetries {
		attempt := s.RetryCount + 1
		delay := ReconnectDelay(s.Policy.Backoff, s.RetryCount)
		s.Phase = PhaseReconnecting
		if s.Notice == nil || s.Notice.Kind == NoticeConnection {
			s = withNotice(s, Notice{
				Kind: NoticeConnection,
				Code: errors.ErrCodeTransport,
				Text: fmt.Sprintf("Connection lost. Reconnecting in %s (attempt %d of %d)...", delay, attempt, s.Policy.MaxRetries),
			})
		}
		return s, []Effect{ScheduleReconnect{Delay: delay, Attempt: attempt}}
	}

	s.Phase = PhaseFailed
	if s.Notice == nil || s.Notice.Kind == NoticeConnection {
		exhausted := errors.ConnectionExhausted(s.JobID, s.RetryCount)
		s = withNotice(s, Notice{
			Kind: NoticeError,
			Code: exhausted.Code,
			Text: exhausted.Message,
		})
	}
	return s, nil
}

func onMessage(s State, msg models.Message) (State, []Effect) {
	switch m := msg.(type) {
	case models.ErrorMessage:
		if s.HasReceivedPayload {
			return s, []Effect{CloseChannel{}}
		}
		protocolErr := errors.Protocol(m.Text)
		s = withNotice(s, Notice{
			Kind: NoticeError,
			Code: protocolErr.Code,
			Text: m.Text,
		})
		s.Phase = PhaseFailed
		return s, []Effect{CloseChannel{}}

	case models.FrameMessage:
		return onFrame(s, m)

	case models.StatusMessage:
		s.StatusText = m.Text
		return s, nil

	case models.ReportMessage:
		s.Report = m.Report
		s.Phase = PhaseFinished
		return s, []Effect{CloseChannel{}}
	}
	return s, nil
}

// onFrame applies the image, objects and progress parts of one frame
// message together.
func onFrame(s State, f models.FrameMessage) (State, []Effect) {
	var effects []Effect

	if !s.HasReceivedPayload && (f.HasImage || f.HasObjects) {
		s.HasReceivedPayload = true
	}

	if f.HasImage {
		s.LatestFrame = f.Image
	}

	if f.HasObjects {
		stats := LiveStats{TotalObjects: len(f.Objects)}
		for _, obj := range f.Objects {
			if obj.IsWrongWay {
				stats.WrongWayObjects++
			}
		}
		s.LiveStats = stats

		// Every new violation raises a notice; the last one stays visible.
		var latest *Notice
		for _, obj := range f.Objects {
			if !obj.IsNewViolation {
				continue
			}
			s = withNotice(s, Notice{
				Kind:        NoticeViolation,
				Text:        fmt.Sprintf("VIOLATION DETECTED! Vehicle ID: %d", obj.ID),
				ViolationID: obj.ID,
			})
			latest = s.Notice
		}
		if latest != nil {
			effects = append(effects, ScheduleNoticeExpiry{Seq: latest.Seq, After: s.Policy.AlertDuration})
		}
	}

	if f.HasProgress && f.TotalFrames != 0 {
		s.CurrentFrame = f.CurrentFrame
		s.TotalFrames = f.TotalFrames
		s.ProgressRatio = clamp01(float64(f.CurrentFrame) / float64(f.TotalFrames))
	}

	return s, effects
}

func withNotice(s State, n Notice) State {
	s.noticeSeq++
	n.Seq = s.noticeSeq
	s.Notice = &n
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
