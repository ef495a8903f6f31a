// Package ws is the transport adapter: it accepts WebSocket connections,
// decodes frames into the closed message set, and dispatches them to the hub.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/voyago/parley/internal/logging"
	"github.com/voyago/parley/pkg/domain"
	"github.com/voyago/parley/pkg/ports"
)

// Wire error strings. These are part of the client contract; the sentinel
// errors behind them are not exposed over the wire.
const (
	errInvalidFormat   = "Invalid message format"
	errUnknownType     = "Unknown message type"
	errSessionFull     = "Session is full"
	errSessionNotFound = "Session not found"
	errInactiveSession = "Invalid or inactive session"
	errNoContent       = "No message content provided"
	errPeerOffline     = "Other user is not connected"
)

const writeTimeout = 10 * time.Second

// Hub defines what the transport needs from the relay core.
type Hub interface {
	Init(ctx context.Context, sessionID, userID string, peer ports.Peer) (joined bool, err error)
	Relay(ctx context.Context, sessionID, userID, payload string) error
	End(ctx context.Context, sessionID string) error
	Disconnect(ctx context.Context, userID string)
	Heartbeat(sessionID, userID string) domain.ServerMessage
}

// Server terminates WebSocket connections and runs one read loop per client.
type Server struct {
	hub     Hub
	logger  *slog.Logger
	clock   func() time.Time
	origins []string
	started time.Time
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for connection events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock injects a time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithOriginPatterns restricts which origins may open a connection. Empty
// means same-origin only, per the websocket library's default.
func WithOriginPatterns(patterns []string) Option {
	return func(s *Server) {
		s.origins = patterns
	}
}

// WithMetricsRegistry mounts a Prometheus scrape endpoint at /metrics.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
}

// NewHandler creates the HTTP handler for the relay: the WebSocket endpoint
// at /ws plus the operational /healthz and (if configured) /metrics routes.
func NewHandler(hub Hub, opts ...Option) http.Handler {
	server := &Server{
		hub:     hub,
		logger:  logging.NewNop(),
		clock:   time.Now,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/ws", server.handleWS)
	r.Get("/healthz", server.handleHealth)
	if server.metrics != nil {
		r.Handle("/metrics", server.metrics)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}

	p := newPeer(conn)
	s.logger.Debug("connection open", "conn_id", p.id, "remote", r.RemoteAddr)

	s.readLoop(r.Context(), p)

	s.logger.Debug("connection closed", "conn_id", p.id)
	conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop processes frames until the transport closes or errors. Per-frame
// failures never end the loop: a malformed payload earns an error reply and
// the connection stays open.
func (s *Server) readLoop(ctx context.Context, p *peer) {
	var boundUser string
	defer func() {
		p.markClosed()
		if boundUser != "" {
			// Same path as if the other party had sent end_session.
			s.hub.Disconnect(ctx, boundUser)
		}
	}()

	for {
		_, data, err := p.conn.Read(ctx)
		if err != nil {
			return
		}

		var msg domain.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reply(ctx, p, domain.NewError(errInvalidFormat, s.clock()))
			continue
		}

		s.dispatch(ctx, p, &boundUser, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, p *peer, boundUser *string, msg domain.ClientMessage) {
	switch msg.Type {
	case domain.TypeInitConnection:
		joined, err := s.hub.Init(ctx, msg.SessionID, msg.UserID, p)
		if errors.Is(err, domain.ErrSessionFull) {
			s.reply(ctx, p, domain.NewError(errSessionFull, s.clock()))
			return
		}
		if err != nil {
			s.reply(ctx, p, domain.NewError(errInactiveSession, s.clock()))
			return
		}
		*boundUser = msg.UserID
		if joined {
			s.reply(ctx, p, domain.NewSuccess("Joined session", s.clock()))
		} else {
			s.reply(ctx, p, domain.NewSuccess("Session created, waiting for other user", s.clock()))
		}

	case domain.TypeTranslation:
		err := s.hub.Relay(ctx, msg.SessionID, msg.UserID, msg.EncryptedMessage)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			s.reply(ctx, p, domain.NewError(errInactiveSession, s.clock()))
		case errors.Is(err, domain.ErrEmptyPayload):
			s.reply(ctx, p, domain.NewError(errNoContent, s.clock()))
		case errors.Is(err, domain.ErrPeerUnavailable):
			s.reply(ctx, p, domain.NewError(errPeerOffline, s.clock()))
		}

	case domain.TypeHeartbeat:
		// Always echoed, whatever the session's state.
		s.reply(ctx, p, s.hub.Heartbeat(msg.SessionID, msg.UserID))

	case domain.TypeEndSession:
		if err := s.hub.End(ctx, msg.SessionID); errors.Is(err, domain.ErrSessionNotFound) {
			s.reply(ctx, p, domain.NewError(errSessionNotFound, s.clock()))
		}
		// On success the caller receives the end_session notice through the
		// teardown path, like any other participant.

	default:
		s.reply(ctx, p, domain.NewError(errUnknownType, s.clock()))
	}
}

func (s *Server) reply(ctx context.Context, p *peer, msg domain.ServerMessage) {
	if err := p.Send(ctx, msg); err != nil {
		s.logger.Debug("reply not delivered", "conn_id", p.id, "err", err)
	}
}

// peer wraps a websocket connection as a ports.Peer. Writes are serialized:
// the hub may deliver a relayed envelope while the read loop replies to a
// heartbeat on the same connection.
type peer struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

var _ ports.Peer = (*peer)(nil)

func newPeer(conn *websocket.Conn) *peer {
	return &peer{id: uuid.NewString(), conn: conn}
}

// Send delivers one frame, bounded by writeTimeout.
func (p *peer) Send(ctx context.Context, msg domain.ServerMessage) error {
	if p.closed.Load() {
		return fmt.Errorf("connection %s closed", p.id)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, p.conn, msg)
}

// Open reports whether the read loop is still running for this connection.
func (p *peer) Open() bool {
	return !p.closed.Load()
}

func (p *peer) markClosed() {
	p.closed.Store(true)
}
