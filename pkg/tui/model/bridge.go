package model

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/modoterra/adminlog/pkg/adminclient"
	"github.com/modoterra/adminlog/pkg/core"
	"github.com/modoterra/adminlog/pkg/transport/ws"
)

// tableInitMsg carries the table spec once the module is known.
type tableInitMsg struct{ spec adminclient.TableSpec }

// tableClearMsg empties the table.
type tableClearMsg struct{}

// tableRowsMsg appends records to the table.
type tableRowsMsg struct{ records []core.LogRecord }

// tableRedrawMsg displays the rows added so far.
type tableRedrawMsg struct{}

// socketOpenMsg indicates the admin socket connected.
type socketOpenMsg struct{}

// socketClosedMsg indicates the admin socket went away.
type socketClosedMsg struct{ err error }

// errorMsg carries an error to display.
type errorMsg struct{ err error }

// Bridge is the adminclient.View of the TUI. View calls arrive on the
// socket goroutine and are queued as tea messages, in order, for App.
type Bridge struct {
	events chan tea.Msg
	done   chan struct{}
	once   sync.Once
}

var _ adminclient.View = (*Bridge)(nil)

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan tea.Msg, 64),
		done:   make(chan struct{}),
	}
}

// Init queues a table init.
func (b *Bridge) Init(spec adminclient.TableSpec) error {
	b.send(tableInitMsg{spec: spec})
	return nil
}

// Clear queues a table clear.
func (b *Bridge) Clear() { b.send(tableClearMsg{}) }

// AddRows queues a copy of records.
func (b *Bridge) AddRows(records []core.LogRecord) {
	b.send(tableRowsMsg{records: append([]core.LogRecord(nil), records...)})
}

// Redraw queues a redraw.
func (b *Bridge) Redraw() { b.send(tableRedrawMsg{}) }

// Fail reports an error that ended the connection attempt.
func (b *Bridge) Fail(err error) { b.send(errorMsg{err: err}) }

// Wrap returns a ws.Handler that reports socket open/close to the TUI and
// forwards every call to h.
func (b *Bridge) Wrap(h ws.Handler) ws.Handler {
	return bridgeHandler{next: h, bridge: b}
}

// Close stops delivery. Pending and later events are dropped.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

// wait returns a command that delivers the next queued event.
func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.done:
			return nil
		default:
		}
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}

type bridgeHandler struct {
	next   ws.Handler
	bridge *Bridge
}

func (h bridgeHandler) OnOpen() {
	h.bridge.send(socketOpenMsg{})
	h.next.OnOpen()
}

func (h bridgeHandler) OnMessage(text string) { h.next.OnMessage(text) }

func (h bridgeHandler) OnClose(err error) {
	h.next.OnClose(err)
	h.bridge.send(socketClosedMsg{err: err})
}
