package session

import (
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/models"
	"github.com/traffisense/core/pkg/stream"
)

// Phase is the lifecycle position of a session.
type Phase int

const (
	// PhaseIdle means no session: before Start or after Reset.
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseStreaming
	PhaseReconnecting
	PhaseFinished
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseStreaming:
		return "streaming"
	case PhaseReconnecting:
		return "reconnecting"
	case PhaseFinished:
		return "finished"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Terminal reports whether no further transitions happen in this session.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseFailed
}

// NoticeKind classifies the single user-visible notice.
type NoticeKind string

const (
	NoticeError      NoticeKind = "error"
	NoticeViolation  NoticeKind = "violation"
	NoticeConnection NoticeKind = "connection"
)

// Notice is the one message shown to the operator. Violation notices expire
// after the alert duration; the others stay until replaced.
type Notice struct {
	Kind        NoticeKind
	Code        errors.ErrorCode
	Text        string
	ViolationID int
	Seq         uint64
}

// LiveStats is the object count of the latest frame.
type LiveStats struct {
	TotalObjects    int
	WrongWayObjects int
}

// State is one snapshot of a session. Values are replaced, never mutated in
// place, so a snapshot handed to a subscriber stays valid.
type State struct {
	JobID      string
	Direction  models.Direction
	InstanceID string
	Generation uint64
	Policy     Policy

	Phase              Phase
	RetryCount         int
	HasReceivedPayload bool

	LatestFrame   []byte
	LiveStats     LiveStats
	ProgressRatio float64
	CurrentFrame  int
	TotalFrames   int
	StatusText    string

	Report            *models.Report
	ActiveViolationID *int
	Notice            *Notice

	noticeSeq uint64
}

// NewState returns the Connecting state of a fresh session.
func NewState(jobID string, dir models.Direction, policy Policy) State {
	return State{
		JobID:     jobID,
		Direction: dir,
		Policy:    policy,
		Phase:     PhaseConnecting,
	}
}

// Target is the stream the session reads from. It depends only on the
// session identity, so every reopen dials the same stream.
func (s State) Target() stream.Target {
	return stream.Target{JobID: s.JobID, Direction: s.Direction}
}

// Progress returns the progress ratio as a percentage.
func (s State) Progress() float64 {
	return s.ProgressRatio * 100
}
