// Package adminclient drives the admin log console: it reacts to socket
// events and to the user's refresh action, and tells a View what to draw.
//
// The reaction to each event is computed by Step, a pure function from the
// current Session and an Event to the next Session plus a list of Effects.
// Client runs those effects against its Transport and View.
package adminclient

import (
	"log/slog"

	"github.com/modoterra/adminlog/pkg/core"
	"github.com/modoterra/adminlog/pkg/l10n"
	"github.com/modoterra/adminlog/pkg/transport/ws"
)

// State is the client's position in the admin protocol.
type State int

const (
	Connecting State = iota
	AwaitingModuleInfo
	Ready
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case AwaitingModuleInfo:
		return "awaiting module info"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Config carries the deployment values used to derive URLs.
type Config struct {
	Origin        string // scheme://host[:port] of the module server
	ServicePrefix string // path prepended to every service location
	Locale        string // BCP 47 tag, e.g. "zh-TW"
}

// Session is everything the client knows about the current connection.
type Session struct {
	State      State
	Module     core.ModuleInfo
	ServiceURI string
	Closed     bool
}

// TableSpec is handed to the View when the module becomes known.
type TableSpec struct {
	Module     core.ModuleInfo
	ServiceURI string
	L10nURL    string
	Locale     string
}

// ServiceURI derives the full API location of a module.
func ServiceURI(origin, prefix, serviceURI string) string {
	return origin + prefix + serviceURI
}

// Event is one of Opened, Closed, Received or RefreshRequested.
type Event interface {
	isEvent()
}

// Opened fires when the socket connects.
type Opened struct{}

// Closed fires when the socket is gone.
type Closed struct {
	Err error
}

// Received wraps a parsed inbound frame.
type Received struct {
	Msg ws.Message
}

// RefreshRequested is the user's manual refresh action.
type RefreshRequested struct{}

func (Opened) isEvent()           {}
func (Closed) isEvent()           {}
func (Received) isEvent()         {}
func (RefreshRequested) isEvent() {}

// Effect is one of Send, InitTable, ClearTable, AddRows, Redraw or Log.
type Effect interface {
	isEffect()
}

// Send writes a command to the socket.
type Send struct {
	Command string
}

// InitTable creates the table view.
type InitTable struct {
	Spec TableSpec
}

// ClearTable removes every displayed row.
type ClearTable struct{}

// AddRows appends a snapshot to the (cleared) table.
type AddRows struct {
	Records []core.LogRecord
}

// Redraw renders the table after rows were added.
type Redraw struct{}

// Log emits a log line.
type Log struct {
	Level slog.Level
	Msg   string
	Attrs []any
}

func (Send) isEffect()       {}
func (InitTable) isEffect()  {}
func (ClearTable) isEffect() {}
func (AddRows) isEffect()    {}
func (Redraw) isEffect()     {}
func (Log) isEffect()        {}

// Step computes the next session and the effects of handling ev.
func Step(cfg Config, s Session, ev Event) (Session, []Effect) {
	switch ev := ev.(type) {
	case Opened:
		// Module info belongs to one connection; a new connection starts over.
		next := Session{State: AwaitingModuleInfo}
		return next, []Effect{Send{Command: ws.CmdGetModuleInfo}}

	case Closed:
		s.Closed = true
		attrs := []any{"state", s.State.String()}
		if ev.Err != nil {
			attrs = append(attrs, "err", ev.Err)
		}
		return s, []Effect{Log{Level: slog.LevelInfo, Msg: "socket closed", Attrs: attrs}}

	case RefreshRequested:
		if s.State != Ready {
			return s, []Effect{Log{Level: slog.LevelDebug, Msg: "refresh ignored before module info", Attrs: []any{"state", s.State.String()}}}
		}
		return s, []Effect{Send{Command: ws.CmdRefreshLog}}

	case Received:
		return receive(cfg, s, ev.Msg)
	}
	return s, nil
}

func receive(cfg Config, s Session, msg ws.Message) (Session, []Effect) {
	switch msg := msg.(type) {
	case ws.ModuleInfoMsg:
		if s.State != AwaitingModuleInfo {
			return s, []Effect{Log{Level: slog.LevelWarn, Msg: "module info ignored", Attrs: []any{"state", s.State.String()}}}
		}
		s.State = Ready
		s.Module = msg.Info
		s.ServiceURI = ServiceURI(cfg.Origin, cfg.ServicePrefix, msg.Info.ServiceURI)
		spec := TableSpec{
			Module:     msg.Info,
			ServiceURI: s.ServiceURI,
			L10nURL:    l10n.URL(cfg.Origin, cfg.ServicePrefix, msg.Info.AdminServiceURI, cfg.Locale),
			Locale:     cfg.Locale,
		}
		return s, []Effect{
			Log{Level: slog.LevelDebug, Msg: "module info received", Attrs: []any{"service_uri", s.ServiceURI}},
			InitTable{Spec: spec},
			Send{Command: ws.CmdRefreshLog},
		}

	case ws.LogDataMsg:
		if s.State != Ready {
			return s, []Effect{Log{Level: slog.LevelDebug, Msg: "log data dropped before module info", Attrs: []any{"records", len(msg.Records)}}}
		}
		effects := []Effect{ClearTable{}}
		if len(msg.Records) > 0 {
			effects = append(effects, AddRows{Records: msg.Records}, Redraw{})
		}
		return s, effects

	case ws.MalformedMsg:
		return s, []Effect{Log{Level: slog.LevelDebug, Msg: "malformed message dropped", Attrs: []any{"prefix", msg.Prefix, "err", msg.Err}}}

	case ws.UnknownMsg:
		return s, []Effect{Log{Level: slog.LevelWarn, Msg: "received an unknown message", Attrs: []any{"text", msg.Text}}}
	}
	return s, nil
}
