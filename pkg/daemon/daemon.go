// Package daemon implements adminlogd, the admin protocol backend that
// answers getModuleInfo and refreshLog over a websocket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/modoterra/adminlog/pkg/core"
	"github.com/modoterra/adminlog/pkg/l10n"
	"github.com/modoterra/adminlog/pkg/transport/ws"
)

// Options configures a Daemon.
type Options struct {
	AdminPath     string // websocket endpoint path
	ServicePrefix string
	Module        core.ModuleInfo
	Source        core.RecordSource
	L10nDir       string        // served under L10nPath when set
	RateLimit     float64       // commands per second per session, 0 = unlimited
	RateBurst     int           // burst for RateLimit
	WatchInterval time.Duration // push snapshots when the source changes, 0 = off
}

// Daemon is the main adminlogd process.
type Daemon struct {
	opts   Options
	server *ws.Server
	mux    *http.ServeMux
	logger *slog.Logger
}

// New creates a daemon and registers its command handlers and routes.
func New(opts Options, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	srv := ws.NewServer(logger)
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		srv.SetRateLimit(rate.Limit(opts.RateLimit), burst)
	}
	d := &Daemon{
		opts:   opts,
		server: srv,
		mux:    http.NewServeMux(),
		logger: logger,
	}
	d.registerHandlers()
	d.registerRoutes()
	return d
}

// Server returns the underlying websocket server.
func (d *Daemon) Server() *ws.Server {
	return d.server
}

// Handler returns the HTTP handler serving the admin socket and l10n files.
func (d *Daemon) Handler() http.Handler {
	return d.mux
}

// L10nPath is the URL path localization files are served under.
func (d *Daemon) L10nPath() string {
	return l10n.Path(d.opts.ServicePrefix, d.opts.Module.AdminServiceURI)
}

// Run serves on ln and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:           d.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if d.opts.WatchInterval > 0 {
		if w, ok := d.opts.Source.(watcher); ok {
			go w.Watch(ctx, d.opts.WatchInterval, func() { d.PushSnapshot(ctx) })
		} else {
			d.logger.Warn("record source cannot be watched; push disabled")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()
	d.logger.Info("admin socket listening", "addr", ln.Addr().String(), "path", d.opts.AdminPath)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	d.server.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// PushSnapshot sends the current log to every connected session.
func (d *Daemon) PushSnapshot(ctx context.Context) {
	reply, err := d.logData(ctx)
	if err != nil {
		d.logger.Error("snapshot for push failed", "err", err)
		return
	}
	d.server.Broadcast(reply)
}

type watcher interface {
	Watch(ctx context.Context, interval time.Duration, onChange func())
}

func (d *Daemon) registerHandlers() {
	d.server.Handle(ws.CmdGetModuleInfo, d.handleGetModuleInfo)
	d.server.Handle(ws.CmdRefreshLog, d.handleRefreshLog)
}

func (d *Daemon) registerRoutes() {
	d.mux.Handle(d.opts.AdminPath, d.server)
	if d.opts.L10nDir != "" {
		path := d.L10nPath()
		d.mux.Handle(path, http.StripPrefix(path, jsonOnly(http.FileServer(http.Dir(d.opts.L10nDir)))))
	}
}

func (d *Daemon) handleGetModuleInfo(_ context.Context, sess *ws.Session, _ []string) (string, error) {
	d.logger.Debug("module info requested", "session", sess.ID)
	return ws.FormatModuleInfo(d.opts.Module)
}

func (d *Daemon) handleRefreshLog(ctx context.Context, sess *ws.Session, _ []string) (string, error) {
	d.logger.Debug("log refresh requested", "session", sess.ID)
	return d.logData(ctx)
}

func (d *Daemon) logData(ctx context.Context) (string, error) {
	if d.opts.Source == nil {
		return ws.FormatLogData(nil)
	}
	recs, err := d.opts.Source.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	return ws.FormatLogData(recs)
}

// jsonOnly refuses anything but .json files, including directory listings.
func jsonOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ".json") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
