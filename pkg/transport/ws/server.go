package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// HandlerFunc answers one admin command. A non-empty reply is sent back to
// the session; an empty reply sends nothing.
type HandlerFunc func(ctx context.Context, sess *Session, args []string) (string, error)

// Session is one connected admin client.
type Session struct {
	ID         string
	RemoteAddr string
	conn       *websocket.Conn
	limiter    *rate.Limiter
	mu         sync.Mutex
}

// Send writes a text frame to the session.
func (s *Session) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown")
	_ = s.conn.WriteMessage(websocket.CloseMessage, msg)
	s.conn.Close()
}

// Server upgrades HTTP requests to the admin socket and dispatches the
// space-separated text commands it receives.
type Server struct {
	upgrader websocket.Upgrader
	handlers map[string]HandlerFunc
	sessions map[*Session]struct{}
	limit    rate.Limit
	burst    int
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewServer creates a server with no handlers and no rate limit.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		handlers: make(map[string]HandlerFunc),
		sessions: make(map[*Session]struct{}),
		limit:    rate.Inf,
		logger:   logger,
	}
}

// Handle registers a handler for a command.
func (s *Server) Handle(command string, h HandlerFunc) {
	s.handlers[command] = h
}

// SetRateLimit caps how many commands each session may issue.
func (s *Server) SetRateLimit(limit rate.Limit, burst int) {
	s.limit = limit
	s.burst = burst
}

// ServeHTTP upgrades the request and serves the session until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	sess := &Session{
		ID:         uuid.NewString(),
		RemoteAddr: r.RemoteAddr,
		conn:       conn,
		limiter:    rate.NewLimiter(s.limit, s.burst),
	}
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("admin session opened", "session", sess.ID, "remote", sess.RemoteAddr)

	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		s.logger.Info("admin session closed", "session", sess.ID)
	}()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read error", "session", sess.ID, "err", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		s.dispatch(r.Context(), sess, string(data))
	}
}

func (s *Server) dispatch(ctx context.Context, sess *Session, text string) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return
	}

	handler, ok := s.handlers[tokens[0]]
	if !ok {
		s.logger.Debug("unknown command", "session", sess.ID, "command", tokens[0])
		return
	}

	if !sess.limiter.Allow() {
		s.logger.Warn("command rate limited", "session", sess.ID, "command", tokens[0])
		return
	}

	reply, err := handler(ctx, sess, tokens[1:])
	if err != nil {
		s.logger.Error("command failed", "session", sess.ID, "command", tokens[0], "err", err)
		return
	}
	if reply == "" {
		return
	}
	if err := sess.Send(reply); err != nil {
		s.logger.Error("write reply failed", "session", sess.ID, "err", err)
	}
}

// Broadcast sends text to every connected session.
func (s *Server) Broadcast(text string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sess := range s.sessions {
		if err := sess.Send(text); err != nil {
			s.logger.Error("broadcast write error", "session", sess.ID, "err", err)
		}
	}
}

// SessionCount reports how many sessions are connected.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown closes every session.
func (s *Server) Shutdown() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
}
