// Package stream connects a live session to the backend's result stream.
// A Dialer opens one Channel per (job, direction) target; the websocket
// dialer talks to a real backend and the replay dialer plays back a
// recording made with Recorder.
package stream

import (
	"context"
	stderrors "errors"
	"net/url"
	"strings"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/pkg/models"
)

// ErrClosed is returned by Receive after the channel was closed normally,
// by either side.
var ErrClosed = stderrors.New("stream closed")

// Target identifies one stream: the backend job and the direction hint.
type Target struct {
	JobID     string
	Direction models.Direction
}

// Channel is one open stream. Receive returns payloads in send order and an
// error once the channel is closed. Close may be called more than once.
type Channel interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Channel, error)
}

// Endpoint builds the stream URL for a target: {base}/ws/{job}?direction={hint}.
// An http(s) base is mapped to ws(s).
func Endpoint(base string, target Target) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", errors.InvalidInput("invalid stream base URL: " + err.Error())
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.InvalidInput("stream base URL must use ws, wss, http or https: " + base)
	}
	if target.JobID == "" {
		return "", errors.InvalidInput("job id is required")
	}

	u.Path = u.Path + "/ws/" + target.JobID
	u.RawPath = ""
	u.RawQuery = url.Values{"direction": {target.Direction.String()}}.Encode()
	return u.String(), nil
}
