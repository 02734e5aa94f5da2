package adminclient

import (
	"context"
	"log/slog"
	"sync"

	"github.com/modoterra/adminlog/pkg/core"
	"github.com/modoterra/adminlog/pkg/transport/ws"
)

// Transport sends commands to the admin socket.
type Transport interface {
	Send(text string) error
}

// View displays the log table.
type View interface {
	Init(spec TableSpec) error
	Clear()
	AddRows(records []core.LogRecord)
	Redraw()
}

// Client is the admin log console controller. It implements ws.Handler, so a
// *ws.Conn can drive it directly.
type Client struct {
	cfg       Config
	transport Transport
	view      View
	logger    *slog.Logger
	mu        sync.Mutex
	session   Session
}

var _ ws.Handler = (*Client)(nil)

// New creates a client in the Connecting state.
func New(t Transport, v View, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:       cfg,
		transport: t,
		view:      v,
		logger:    logger,
	}
}

// OnOpen handles the socket connecting.
func (c *Client) OnOpen() { c.apply(Opened{}) }

// OnMessage handles one inbound text frame.
func (c *Client) OnMessage(text string) { c.apply(Received{Msg: ws.Parse(text)}) }

// OnClose handles the socket going away.
func (c *Client) OnClose(err error) { c.apply(Closed{Err: err}) }

// Refresh re-requests the log snapshot.
func (c *Client) Refresh() { c.apply(RefreshRequested{}) }

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) apply(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, effects := Step(c.cfg, c.session, ev)
	c.session = next
	for _, e := range effects {
		c.run(e)
	}
}

func (c *Client) run(e Effect) {
	switch e := e.(type) {
	case Send:
		if err := c.transport.Send(e.Command); err != nil {
			c.logger.Error("send failed", "command", e.Command, "err", err)
		}
	case InitTable:
		if err := c.view.Init(e.Spec); err != nil {
			c.logger.Error("table init failed", "err", err)
		}
	case ClearTable:
		c.view.Clear()
	case AddRows:
		c.view.AddRows(e.Records)
	case Redraw:
		c.view.Redraw()
	case Log:
		c.logger.Log(context.Background(), e.Level, e.Msg, e.Attrs...)
	}
}
