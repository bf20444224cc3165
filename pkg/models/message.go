package models

import (
	"encoding/base64"
	"encoding/json"

	"github.com/traffisense/core/errors"
)

// Envelope is the JSON object the backend sends for every stream message.
// Every field is optional; which ones are present decides the kind of
// message.
type Envelope struct {
	Error   *string   `json:"error,omitempty"`
	Image   string    `json:"image,omitempty"`
	Objects *[]Object `json:"objects,omitempty"`

	CurrentFrame *int `json:"current_frame,omitempty"`
	TotalFrames  *int `json:"total_frames,omitempty"`

	FrameWidth        int      `json:"frame_width,omitempty"`
	FrameHeight       int      `json:"frame_height,omitempty"`
	MajorityDirection *float64 `json:"majority_direction,omitempty"`

	Type    string  `json:"type,omitempty"`
	Message string  `json:"message,omitempty"`
	Summary *Report `json:"summary,omitempty"`
}

// Object is one tracked vehicle in a frame.
type Object struct {
	ID             int       `json:"id"`
	Box            []float64 `json:"box,omitempty"`
	Direction      float64   `json:"direction"`
	IsWrongWay     bool      `json:"is_wrong_way"`
	IsNewViolation bool      `json:"is_new_violation"`
	Speed          float64   `json:"speed"`
}

// Message types carried in the "type" field.
const (
	TypeStatus = "status"
	TypeReport = "report"
)

// Message is a classified stream message. It is one of ErrorMessage,
// FrameMessage, StatusMessage, ReportMessage or UnknownMessage.
type Message interface {
	messageKind() string
}

// ErrorMessage is a protocol-level error reported by the backend.
type ErrorMessage struct {
	Text string
}

// FrameMessage carries any combination of preview image, detected objects
// and progress counters.
type FrameMessage struct {
	Image      []byte
	HasImage   bool
	Objects    []Object
	HasObjects bool

	CurrentFrame int
	TotalFrames  int
	HasProgress  bool
}

// StatusMessage is a free-form status line.
type StatusMessage struct {
	Text string
}

// ReportMessage is the final summary of a job.
type ReportMessage struct {
	Report *Report
}

// UnknownMessage is anything that matched no other kind. It is ignored.
type UnknownMessage struct {
	Type string
}

func (ErrorMessage) messageKind() string   { return "error" }
func (FrameMessage) messageKind() string   { return "frame" }
func (StatusMessage) messageKind() string  { return "status" }
func (ReportMessage) messageKind() string  { return "report" }
func (UnknownMessage) messageKind() string { return "unknown" }

// Kind names the message variant for logging.
func Kind(m Message) string {
	if m == nil {
		return "none"
	}
	return m.messageKind()
}

// DecodeMessage parses one stream payload and classifies it.
func DecodeMessage(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.MalformedMessage(err)
	}
	return env.Classify()
}

// Classify maps an envelope to exactly one message kind. An error field wins
// over everything, then frame content, then the status and report types.
func (e Envelope) Classify() (Message, error) {
	if e.Error != nil {
		return ErrorMessage{Text: *e.Error}, nil
	}

	hasProgress := e.CurrentFrame != nil && e.TotalFrames != nil
	if e.Image != "" || e.Objects != nil || hasProgress {
		frame := FrameMessage{HasProgress: hasProgress}
		if e.Objects != nil {
			frame.Objects = *e.Objects
			frame.HasObjects = true
		}
		if e.Image != "" {
			img, err := base64.StdEncoding.DecodeString(e.Image)
			if err != nil {
				return nil, errors.MalformedMessage(err)
			}
			frame.Image = img
			frame.HasImage = true
		}
		if hasProgress {
			frame.CurrentFrame = *e.CurrentFrame
			frame.TotalFrames = *e.TotalFrames
		}
		return frame, nil
	}

	switch e.Type {
	case TypeStatus:
		return StatusMessage{Text: e.Message}, nil
	case TypeReport:
		if e.Summary == nil {
			return nil, errors.New(errors.ErrCodeMalformedMessage, "report message without summary")
		}
		return ReportMessage{Report: e.Summary}, nil
	}
	return UnknownMessage{Type: e.Type}, nil
}

// ErrorEnvelope builds the payload the backend sends for a protocol error.
func ErrorEnvelope(text string) Envelope {
	return Envelope{Error: &text}
}

// FrameEnvelope builds a frame payload. A nil image is omitted.
func FrameEnvelope(image []byte, objects []Object, current, total int) Envelope {
	if objects == nil {
		objects = []Object{}
	}
	env := Envelope{
		Objects:      &objects,
		CurrentFrame: &current,
		TotalFrames:  &total,
	}
	if image != nil {
		env.Image = base64.StdEncoding.EncodeToString(image)
	}
	return env
}

// StatusEnvelope builds a status payload.
func StatusEnvelope(text string) Envelope {
	return Envelope{Type: TypeStatus, Message: text}
}

// ReportEnvelope builds the final report payload.
func ReportEnvelope(r *Report) Envelope {
	return Envelope{Type: TypeReport, Summary: r}
}
