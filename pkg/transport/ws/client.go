package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("websocket not connected")

// Handler receives connection events. All calls for one Run come from a
// single goroutine, in arrival order.
type Handler interface {
	OnOpen()
	OnMessage(text string)
	OnClose(err error)
}

// Conn is the client side of the admin socket.
type Conn struct {
	url     string
	header  http.Header
	dialer  *websocket.Dialer
	logger  *slog.Logger
	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool
}

// NewConn prepares a connection to url. Nothing is dialed until Run.
func NewConn(url string, header http.Header, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		logger: logger,
	}
}

// Run dials the server, reports OnOpen, delivers each frame to OnMessage and
// finally reports OnClose. It blocks until the connection ends or ctx is
// cancelled. Binary frames are delivered as the empty string.
func (c *Conn) Run(ctx context.Context, h Handler) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.closing = false
	c.mu.Unlock()
	c.logger.Debug("socket open", "url", c.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()

	h.OnOpen()

	var readErr error
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		text := ""
		if typ == websocket.TextMessage {
			text = string(data)
		}
		h.OnMessage(text)
	}

	c.mu.Lock()
	closing := c.closing
	c.conn = nil
	c.mu.Unlock()
	conn.Close()

	if closing || ctx.Err() != nil ||
		websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		readErr = nil
	}
	h.OnClose(readErr)
	return readErr
}

// Send writes one text frame.
func (c *Conn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close sends a normal close frame and closes the connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.closing = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
