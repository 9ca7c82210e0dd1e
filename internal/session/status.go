// Package session composes one stream client, one reconciler and their
// observers per watched entity, and owns their teardown: closing a session
// closes exactly one stream client and clears at most one polling ticker.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kirinyoku/tripsync-go/internal/domain"
	"github.com/kirinyoku/tripsync-go/internal/notify"
	"github.com/kirinyoku/tripsync-go/internal/reconcile"
	"github.com/kirinyoku/tripsync-go/internal/stream"
)

// StatusFetcher is the pull side of the status collaborator, used for the
// initial snapshot and optional polling.
type StatusFetcher interface {
	FlightStatus(ctx context.Context, flightID string) (domain.StatusSnapshot, error)
}

type StatusConfig struct {
	FlightID       string
	ReconnectDelay time.Duration
	// PollingEnabled adds a periodic refetch alongside the stream.
	// Disabled by default; the stream is the primary source.
	PollingEnabled bool
	PollInterval   time.Duration
}

// StatusSession keeps one flight's status snapshot live: initial fetch,
// stream subscription on the default/init/update/broadcast channels,
// escalation through the notifier, optional polling.
type StatusSession struct {
	fetcher    StatusFetcher
	client     *stream.Client
	reconciler *reconcile.Status
	logger     *slog.Logger
	cfg        StatusConfig

	mu         sync.Mutex
	started    bool
	closed     bool
	pollTicker *time.Ticker
	pollCancel context.CancelFunc
}

func NewStatusSession(
	fetcher StatusFetcher,
	transport stream.Transport,
	notifier *notify.Notifier,
	logger *slog.Logger,
	cfg StatusConfig,
) *StatusSession {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}

	escalator := func(prev *domain.StatusSnapshot, next domain.StatusSnapshot) {
		if n, ok := notify.Decide(prev, next); ok {
			notifier.Deliver(context.Background(), n)
		}
	}

	reconciler := reconcile.NewStatus(escalator, logger)

	client := stream.New(transport, logger, stream.Config{
		ReconnectDelay: cfg.ReconnectDelay,
	})

	// Every status channel carries a full snapshot; all of them replace
	// wholesale and run through the escalator.
	client.On(stream.DefaultChannel, reconciler.HandleRaw)
	client.On("init", reconciler.HandleRaw)
	client.On("update", reconciler.HandleRaw)
	client.On("broadcast", reconciler.HandleRaw)

	return &StatusSession{
		fetcher:    fetcher,
		client:     client,
		reconciler: reconciler,
		logger:     logger,
		cfg:        cfg,
	}
}

// Subscribe registers an observer for accepted snapshots.
func (s *StatusSession) Subscribe(fn func(domain.StatusSnapshot)) {
	s.reconciler.Subscribe(fn)
}

// Current returns the latest snapshot, if any arrived yet.
func (s *StatusSession) Current() (domain.StatusSnapshot, bool) {
	return s.reconciler.Current()
}

// ConnState exposes the stream client state for display.
func (s *StatusSession) ConnState() stream.ConnState {
	return s.client.State()
}

// OnConnStateChange registers a display observer on the stream client.
func (s *StatusSession) OnConnStateChange(fn func(stream.ConnState)) {
	s.client.OnStateChange(fn)
}

// Open performs the initial fetch, starts the stream and, when enabled,
// the poll ticker. Idempotent.
func (s *StatusSession) Open(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	initial, err := s.fetcher.FlightStatus(ctx, s.cfg.FlightID)
	if err != nil {
		// The stream's init message will fill the gap.
		s.logger.Warn("initial status fetch failed", "flight_id", s.cfg.FlightID, "error", err)
	} else {
		s.reconciler.Apply(initial)
	}

	s.client.Start()

	if s.cfg.PollingEnabled {
		pollCtx, cancel := context.WithCancel(context.Background())
		ticker := time.NewTicker(s.cfg.PollInterval)

		s.mu.Lock()
		s.pollTicker = ticker
		s.pollCancel = cancel
		s.mu.Unlock()

		go s.poll(pollCtx, ticker)
	}
}

// Close tears the session down: one stream client closed, the poll ticker
// cleared if polling was enabled. Safe to call multiple times.
func (s *StatusSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	ticker := s.pollTicker
	cancel := s.pollCancel
	s.pollTicker = nil
	s.pollCancel = nil
	s.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}

	if cancel != nil {
		cancel()
	}

	s.client.Close()
}

func (s *StatusSession) poll(ctx context.Context, ticker *time.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fresh, err := s.fetcher.FlightStatus(ctx, s.cfg.FlightID)
			if err != nil {
				s.logger.Warn("status poll failed", "flight_id", s.cfg.FlightID, "error", err)
				continue
			}

			s.reconciler.Apply(fresh)
		}
	}
}
