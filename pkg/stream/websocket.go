package stream

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/version"
)

const closeWriteWait = time.Second

// WebSocketDialer opens result streams on a live backend.
type WebSocketDialer struct {
	// Base is the stream base URL; http(s) is mapped to ws(s).
	Base             string
	HandshakeTimeout time.Duration
	Header           http.Header
}

// NewWebSocketDialer returns a dialer for base.
func NewWebSocketDialer(base string, handshakeTimeout time.Duration) *WebSocketDialer {
	return &WebSocketDialer{Base: base, HandshakeTimeout: handshakeTimeout}
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, target Target) (Channel, error) {
	endpoint, err := Endpoint(d.Base, target)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	for k, v := range d.Header {
		header[k] = append([]string(nil), v...)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", version.UserAgent())
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		e := errors.Transport(endpoint, err)
		if resp != nil {
			e = e.WithDetail("status", resp.StatusCode)
		}
		return nil, e
	}
	return &wsChannel{conn: conn, endpoint: endpoint}, nil
}

type wsChannel struct {
	conn     *websocket.Conn
	endpoint string

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// Receive blocks for the next text or binary frame. Cancelling ctx closes the
// underlying connection.
func (c *wsChannel) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	_, data, err := c.conn.ReadMessage()
	if err == nil {
		return data, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if c.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil, ErrClosed
	}
	if stderrors.Is(err, net.ErrClosed) {
		return nil, ErrClosed
	}
	return nil, errors.Transport(c.endpoint, err)
}

// Close sends a normal close frame and releases the connection.
func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		err = c.conn.Close()
	})
	return err
}

func (c *wsChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
