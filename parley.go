package parley

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voyago/parley/internal/logging"
	"github.com/voyago/parley/internal/metrics"
	"github.com/voyago/parley/pkg/adapters/memory"
	"github.com/voyago/parley/pkg/adapters/ws"
	"github.com/voyago/parley/pkg/hub"
	"github.com/voyago/parley/pkg/ports"
)

// Relay is the high-level entry point for the Parley library.
// It wires the hub, the transport handler, and the session directory, and
// provides a simplified API for consumers embedding the relay.
type Relay struct {
	hub          *hub.Hub
	handler      http.Handler
	directory    ports.SessionStore
	logger       *slog.Logger
	registry     *prometheus.Registry
	clock        func() time.Time
	reapInterval time.Duration
	idleAfter    time.Duration
	origins      []string
}

// Option defines a functional option for configuring the Relay.
type Option func(*Relay)

// WithDirectory injects a custom session directory, bypassing the default
// in-memory store.
func WithDirectory(store ports.SessionStore) Option {
	return func(r *Relay) {
		r.directory = store
	}
}

// WithLogger configures the application logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithMetrics registers the relay's collectors with reg and mounts a scrape
// endpoint at /metrics.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(r *Relay) {
		r.registry = reg
	}
}

// WithReapInterval sets how often the idle reaper scans the registry.
func WithReapInterval(d time.Duration) Option {
	return func(r *Relay) {
		r.reapInterval = d
	}
}

// WithIdleAfter sets the session age beyond which the reaper removes it.
func WithIdleAfter(d time.Duration) Option {
	return func(r *Relay) {
		r.idleAfter = d
	}
}

// WithOriginPatterns restricts which origins may open WebSocket connections.
func WithOriginPatterns(patterns []string) Option {
	return func(r *Relay) {
		r.origins = patterns
	}
}

// WithClock injects a time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Relay) {
		r.clock = clock
	}
}

// New creates a Relay with default settings: in-memory directory, no-op
// logger, 5-minute reap interval, 30-minute idle threshold.
func New(opts ...Option) *Relay {
	r := &Relay{
		directory:    memory.NewStore(),
		logger:       logging.NewNop(),
		clock:        time.Now,
		reapInterval: hub.DefaultReapInterval,
		idleAfter:    hub.DefaultIdleAfter,
	}
	for _, opt := range opts {
		opt(r)
	}

	var m *metrics.Metrics
	if r.registry != nil {
		m = metrics.New(r.registry)
	} else {
		m = metrics.NewNop()
	}

	r.hub = hub.New(
		hub.WithDirectory(r.directory),
		hub.WithLogger(r.logger),
		hub.WithMetrics(m),
		hub.WithClock(r.clock),
		hub.WithReapInterval(r.reapInterval),
		hub.WithIdleAfter(r.idleAfter),
	)

	wsOpts := []ws.Option{
		ws.WithLogger(r.logger),
		ws.WithClock(r.clock),
		ws.WithOriginPatterns(r.origins),
	}
	if r.registry != nil {
		wsOpts = append(wsOpts, ws.WithMetricsRegistry(r.registry))
	}
	r.handler = ws.NewHandler(r.hub, wsOpts...)

	return r
}

// Handler returns the HTTP handler exposing /ws, /healthz, and /metrics.
func (r *Relay) Handler() http.Handler {
	return r.handler
}

// Hub exposes the session registry, mainly for embedders and tests.
func (r *Relay) Hub() *hub.Hub {
	return r.hub
}

// Run drives the idle reaper until ctx is canceled.
func (r *Relay) Run(ctx context.Context) {
	r.hub.Run(ctx)
}

// Shutdown ends every live session through the normal teardown path, so
// connected clients receive end_session notices before the process exits.
func (r *Relay) Shutdown(ctx context.Context) {
	r.hub.EndAll(ctx)
}
