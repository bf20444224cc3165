package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traffisense/core/errors"
)

type wsRequest struct {
	path      string
	direction string
	userAgent string
}

func newWSServer(t *testing.T, frames []string, seen chan<- wsRequest) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/ws/") {
			http.NotFound(w, r)
			return
		}
		seen <- wsRequest{
			path:      r.URL.Path,
			direction: r.URL.Query().Get("direction"),
			userAgent: r.Header.Get("User-Agent"),
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(time.Second))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSocketDialerReceivesFrames(t *testing.T) {
	seen := make(chan wsRequest, 1)
	srv := newWSServer(t, []string{`{"type":"status","message":"hi"}`, `{"current_frame":1,"total_frames":2}`}, seen)

	d := NewWebSocketDialer(srv.URL, time.Second)
	ch, err := d.Dial(context.Background(), Target{JobID: "clip.mp4", Direction: "180"})
	require.NoError(t, err)
	defer ch.Close()

	req := <-seen
	assert.Equal(t, "/ws/clip.mp4", req.path)
	assert.Equal(t, "180", req.direction)
	assert.True(t, strings.HasPrefix(req.userAgent, "traffisense/"))

	ctx := context.Background()
	first, err := ch.Receive(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"status","message":"hi"}`, string(first))

	_, err = ch.Receive(ctx)
	require.NoError(t, err)

	_, err = ch.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWebSocketDialerRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	d := NewWebSocketDialer(srv.URL, 200*time.Millisecond)
	_, err := d.Dial(context.Background(), Target{JobID: "clip.mp4"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTransport))
}

func TestWebSocketReceiveCancelled(t *testing.T) {
	hold := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-hold
	}))
	defer srv.Close()
	defer close(hold)

	ch, err := NewWebSocketDialer(srv.URL, time.Second).Dial(context.Background(), Target{JobID: "j"})
	require.NoError(t, err)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = ch.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWebSocketCloseIsIdempotent(t *testing.T) {
	seen := make(chan wsRequest, 1)
	srv := newWSServer(t, nil, seen)

	ch, err := NewWebSocketDialer(srv.URL, time.Second).Dial(context.Background(), Target{JobID: "j"})
	require.NoError(t, err)
	<-seen

	_ = ch.Close()
	assert.NoError(t, ch.Close())
	_, err = ch.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
