package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voyago/parley/internal/logging"
	"github.com/voyago/parley/internal/metrics"
	"github.com/voyago/parley/pkg/domain"
	"github.com/voyago/parley/pkg/ports"
)

const (
	// DefaultReapInterval is how often the idle reaper scans the registry.
	DefaultReapInterval = 5 * time.Minute

	// DefaultIdleAfter is the session age beyond which the reaper removes a
	// session. Age is measured from creation, not last activity: a chatty
	// session is reaped at the same wall-clock age as an idle one.
	DefaultIdleAfter = 30 * time.Minute

	// directoryTimeout bounds best-effort writes to the session directory.
	directoryTimeout = 5 * time.Second
)

// live pairs a session record with its participants' connection handles. The
// session exclusively owns the handles for its lifetime.
type live struct {
	session   *domain.Session
	initiator ports.Peer
	joiner    ports.Peer
}

// target returns the counterparty connection for a message sent by userID.
func (l *live) target(userID string) ports.Peer {
	if userID == l.session.InitiatorID {
		return l.joiner
	}
	return l.initiator
}

// Hub routes messages between the two participants of each session.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*live  // sessionID -> live session
	users    map[string]string // userID -> sessionID

	directory    ports.SessionStore
	logger       *slog.Logger
	metrics      *metrics.Metrics
	clock        func() time.Time
	reapInterval time.Duration
	idleAfter    time.Duration
}

// Option configures the Hub.
type Option func(*Hub)

// WithDirectory mirrors session records to a SessionStore so they can be
// inspected out of process. Writes are best-effort and never on the relay path.
func WithDirectory(store ports.SessionStore) Option {
	return func(h *Hub) {
		h.directory = store
	}
}

// WithLogger configures a logger for hub events.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithMetrics configures Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithClock injects a time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(h *Hub) {
		h.clock = clock
	}
}

// WithReapInterval sets how often Run scans for expired sessions.
func WithReapInterval(d time.Duration) Option {
	return func(h *Hub) {
		h.reapInterval = d
	}
}

// WithIdleAfter sets the session age beyond which the reaper removes it.
func WithIdleAfter(d time.Duration) Option {
	return func(h *Hub) {
		h.idleAfter = d
	}
}

// New creates a Hub with an empty registry.
func New(opts ...Option) *Hub {
	h := &Hub{
		sessions:     make(map[string]*live),
		users:        make(map[string]string),
		logger:       logging.NewNop(),
		metrics:      metrics.NewNop(),
		clock:        time.Now,
		reapInterval: DefaultReapInterval,
		idleAfter:    DefaultIdleAfter,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Init admits a connection into a session. The first init for an unseen id
// creates the session with peer as initiator; the second binds peer as joiner
// and notifies the initiator (best-effort) that a peer joined. A third init
// returns domain.ErrSessionFull with no state change.
//
// The returned bool is true when peer was bound as the joiner.
func (h *Hub) Init(ctx context.Context, sessionID, userID string, peer ports.Peer) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.sessions[sessionID]
	if !ok {
		session := domain.NewSession(sessionID, userID, h.clock())
		h.sessions[sessionID] = &live{session: session, initiator: peer}
		h.users[userID] = sessionID

		h.metrics.SessionsCreated.Inc()
		h.metrics.SessionsActive.Set(float64(len(h.sessions)))
		h.mirror(ctx, session)
		h.logger.Info("session created", "session_id", sessionID, "user_id", userID)
		return false, nil
	}

	if l.session.Full() {
		return false, domain.ErrSessionFull
	}

	l.session.JoinerID = userID
	l.joiner = peer
	h.users[userID] = sessionID
	h.mirror(ctx, l.session)
	h.logger.Info("session joined", "session_id", sessionID, "user_id", userID)

	if l.initiator != nil && l.initiator.Open() {
		notice := domain.NewSuccess("Other user joined the session", h.clock())
		if err := l.initiator.Send(ctx, notice); err != nil {
			h.logger.Warn("join notice not delivered", "session_id", sessionID, "err", err)
		}
	}
	return true, nil
}

// Relay forwards an opaque payload to the sender's counterparty. The payload
// bytes are not inspected or mutated. There is no queueing: the message is
// forwarded immediately or rejected immediately.
func (h *Hub) Relay(ctx context.Context, sessionID, userID, payload string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.sessions[sessionID]
	if !ok || !l.session.Active {
		h.metrics.RelayErrors.WithLabelValues("session_not_found").Inc()
		return domain.ErrSessionNotFound
	}

	if payload == "" {
		h.metrics.RelayErrors.WithLabelValues("empty_payload").Inc()
		return domain.ErrEmptyPayload
	}

	target := l.target(userID)
	if target == nil || !target.Open() {
		h.metrics.RelayErrors.WithLabelValues("peer_unavailable").Inc()
		return domain.ErrPeerUnavailable
	}

	if err := target.Send(ctx, domain.NewRelay(sessionID, userID, payload, h.clock())); err != nil {
		h.logger.Warn("relay delivery failed", "session_id", sessionID, "err", err)
		h.metrics.RelayErrors.WithLabelValues("peer_unavailable").Inc()
		return domain.ErrPeerUnavailable
	}

	h.metrics.MessagesRelayed.Inc()
	return nil
}

// Heartbeat builds the echo reply. It succeeds regardless of session
// existence or state: liveness probing is the client's concern and the server
// does not evict on missed heartbeats (that is the idle reaper's job).
func (h *Hub) Heartbeat(sessionID, userID string) domain.ServerMessage {
	return domain.NewHeartbeat(sessionID, userID, h.clock())
}

// End terminates a session explicitly. Returns domain.ErrSessionNotFound when
// the id is absent, making repeated ends idempotent from the caller's view.
func (h *Hub) End(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	h.teardownLocked(ctx, l, "end_session")
	return nil
}

// Disconnect terminates the session a user belongs to, as if the other party
// had sent end_session. It is a silent no-op for connections that never
// completed an init.
func (h *Hub) Disconnect(ctx context.Context, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionID, ok := h.users[userID]
	if !ok {
		return
	}
	if l, ok := h.sessions[sessionID]; ok {
		h.teardownLocked(ctx, l, "disconnect")
	}
}

// EndAll terminates every live session, notifying still-open participants.
// Used on graceful shutdown.
func (h *Hub) EndAll(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, l := range h.sessions {
		h.teardownLocked(ctx, l, "shutdown")
	}
}

// Count returns the number of sessions currently in the registry.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Reap runs one reaping pass: every session whose age exceeds the idle
// threshold is torn down through the same path as an explicit end. The pass
// holds the registry lock, so it is atomic with respect to message handling.
func (h *Hub) Reap(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock()
	for _, l := range h.sessions {
		if l.session.Age(now) > h.idleAfter {
			h.logger.Info("reaping idle session",
				"session_id", l.session.ID,
				"age", l.session.Age(now),
			)
			h.teardownLocked(ctx, l, "idle_reap")
			h.metrics.SessionsReaped.Inc()
		}
	}
}

// Run drives the idle reaper until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Reap(ctx)
		}
	}
}

// teardownLocked marks the session inactive, sends best-effort end notices to
// still-open participants, and removes the session and both index entries.
// Caller must hold h.mu.
//
// The teardown must outlive the triggering connection's context (the reader
// that observed the disconnect is already canceled), so notices and directory
// writes run on a detached context.
func (h *Hub) teardownLocked(ctx context.Context, l *live, reason string) {
	ctx = context.WithoutCancel(ctx)

	l.session.Active = false
	notice := domain.NewEndNotice(l.session.ID, h.clock())

	for _, peer := range []ports.Peer{l.initiator, l.joiner} {
		if peer == nil || !peer.Open() {
			continue
		}
		// Failure to send is ignored: the connection is presumed gone.
		_ = peer.Send(ctx, notice)
	}

	delete(h.sessions, l.session.ID)
	delete(h.users, l.session.InitiatorID)
	if l.session.JoinerID != "" {
		delete(h.users, l.session.JoinerID)
	}

	h.metrics.SessionsActive.Set(float64(len(h.sessions)))
	if h.directory != nil {
		dctx, cancel := context.WithTimeout(ctx, directoryTimeout)
		if err := h.directory.Delete(dctx, l.session.ID); err != nil {
			h.logger.Warn("directory delete failed", "session_id", l.session.ID, "err", err)
		}
		cancel()
	}

	h.logger.Info("session ended", "session_id", l.session.ID, "reason", reason)
}

// mirror writes the session record to the directory, best-effort.
// Caller must hold h.mu.
func (h *Hub) mirror(ctx context.Context, session *domain.Session) {
	if h.directory == nil {
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), directoryTimeout)
	defer cancel()
	if err := h.directory.Save(dctx, session); err != nil {
		h.logger.Warn("directory save failed", "session_id", session.ID, "err", err)
	}
}
