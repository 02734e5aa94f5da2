package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/modoterra/adminlog/pkg/adminclient"
	"github.com/modoterra/adminlog/pkg/config"
	"github.com/modoterra/adminlog/pkg/core"
	"github.com/modoterra/adminlog/pkg/l10n"
	"github.com/modoterra/adminlog/pkg/logtable"
	"github.com/modoterra/adminlog/pkg/transport/ws"
)

var errClosedEarly = errors.New("admin socket closed before the module answered")

// collector is a headless View. It wraps the client's socket handler so it
// knows when a logData message has been fully applied.
type collector struct {
	next     ws.Handler
	rows     []core.LogRecord
	cleared  bool
	ready    chan adminclient.TableSpec
	snapshot chan []core.LogRecord
	closed   chan error
}

func newCollector() *collector {
	return &collector{
		ready:    make(chan adminclient.TableSpec, 1),
		snapshot: make(chan []core.LogRecord, 1),
		closed:   make(chan error, 1),
	}
}

func (c *collector) Init(spec adminclient.TableSpec) error {
	select {
	case c.ready <- spec:
	default:
	}
	return nil
}

func (c *collector) Clear() {
	c.rows = nil
	c.cleared = true
}

func (c *collector) AddRows(recs []core.LogRecord) { c.rows = append(c.rows, recs...) }

func (c *collector) Redraw() {}

func (c *collector) OnOpen() { c.next.OnOpen() }

func (c *collector) OnMessage(text string) {
	c.cleared = false
	c.next.OnMessage(text)
	if c.cleared {
		rows := c.rows
		if rows == nil {
			rows = []core.LogRecord{}
		}
		select {
		case c.snapshot <- rows:
		default:
		}
	}
}

func (c *collector) OnClose(err error) {
	c.next.OnClose(err)
	if err == nil {
		err = errClosedEarly
	}
	c.closed <- err
}

// fetch connects, waits for the module info and, when withLog is set, the
// first log snapshot.
func fetch(ctx context.Context, cc config.ClientConfig, withLog bool) (adminclient.TableSpec, []core.LogRecord, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	conn := ws.NewConn(cc.URL, handshakeHeader(cc), logger)
	col := newCollector()
	col.next = adminclient.New(conn, col, clientConfig(cc), logger)

	runCtx, cancel := context.WithCancel(ctx)
	runErr := make(chan error, 1)
	go func() { runErr <- conn.Run(runCtx, col) }()
	defer func() {
		cancel()
		<-runErr
	}()

	var spec adminclient.TableSpec
	select {
	case spec = <-col.ready:
	case err := <-col.closed:
		return spec, nil, err
	case err := <-runErr:
		runErr <- err
		return spec, nil, err
	case <-ctx.Done():
		return spec, nil, fmt.Errorf("waiting for module info: %w", ctx.Err())
	}
	if !withLog {
		return spec, nil, nil
	}

	select {
	case recs := <-col.snapshot:
		return spec, recs, nil
	case err := <-col.closed:
		return spec, nil, err
	case <-ctx.Done():
		return spec, nil, fmt.Errorf("waiting for log data: %w", ctx.Err())
	}
}

// renderSnapshot formats recs as a localized text table, newest first.
func renderSnapshot(locale string, recs []core.LogRecord) string {
	cat := l10n.Builtin(locale)
	t := logtable.New(
		logtable.LogColumns(cat, l10n.NewDateFormatter(locale, nil)),
		cat,
		logtable.WithPageSize(max(len(recs), 1)),
	)
	t.AddRows(recs)
	t.Draw()

	cells := t.PageRows()
	if len(cells) == 0 {
		return t.EmptyText()
	}
	rows := make([][]string, len(cells))
	for i, r := range cells {
		rows[i] = make([]string, len(r))
		for j, c := range r {
			rows[i][j] = c.Text
		}
	}

	out := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Headers()...).
		Rows(rows...).
		Render()
	return strings.TrimRight(out, "\n") + "\n" + t.Info()
}
