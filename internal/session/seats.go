package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kirinyoku/tripsync-go/internal/domain"
	"github.com/kirinyoku/tripsync-go/internal/reconcile"
	"github.com/kirinyoku/tripsync-go/internal/reservation"
	"github.com/kirinyoku/tripsync-go/internal/stream"
)

// SeatBackend is the remote surface a seat session needs: the initial map
// fetch plus the mutation calls the coordinator drives.
type SeatBackend interface {
	SeatMap(ctx context.Context, flightID string) ([]domain.Seat, error)
	reservation.SeatAPI
	reservation.PreferenceStore
}

type SeatConfig struct {
	FlightID       string
	UserID         string
	ReconnectDelay time.Duration
}

// SeatSession keeps one flight's seat inventory live and exposes the
// reservation coordinator bound to it.
type SeatSession struct {
	backend     SeatBackend
	client      *stream.Client
	reconciler  *reconcile.Availability
	coordinator *reservation.Coordinator
	logger      *slog.Logger
	cfg         SeatConfig

	mu      sync.Mutex
	started bool
	closed  bool
}

func NewSeatSession(
	backend SeatBackend,
	transport stream.Transport,
	logger *slog.Logger,
	cfg SeatConfig,
) *SeatSession {
	reconciler := reconcile.NewAvailability(logger)

	coordinator := reservation.New(backend, backend, reconciler, cfg.UserID, logger)
	reconciler.Subscribe(coordinator.OnInventory)

	client := stream.New(transport, logger, stream.Config{
		ReconnectDelay: cfg.ReconnectDelay,
	})

	// The seat stream carries full arrays and single-seat patches on
	// whichever channel the server felt like; the payload shape decides,
	// so every channel feeds the same decoder.
	client.On(stream.DefaultChannel, reconciler.HandleRaw)
	client.On("init", reconciler.HandleRaw)
	client.On("update", reconciler.HandleRaw)
	client.On("seatUpdate", reconciler.HandleRaw)

	return &SeatSession{
		backend:     backend,
		client:      client,
		reconciler:  reconciler,
		coordinator: coordinator,
		logger:      logger,
		cfg:         cfg,
	}
}

// Coordinator returns the reservation coordinator for this session.
func (s *SeatSession) Coordinator() *reservation.Coordinator {
	return s.coordinator
}

// Inventory returns a copy of the current seat inventory.
func (s *SeatSession) Inventory() map[string]domain.Seat {
	return s.reconciler.Snapshot()
}

// SubscribeInventory registers an observer for inventory changes.
func (s *SeatSession) SubscribeInventory(fn func(map[string]domain.Seat)) {
	s.reconciler.Subscribe(fn)
}

// ConnState exposes the stream client state for display.
func (s *SeatSession) ConnState() stream.ConnState {
	return s.client.State()
}

// Open fetches the initial seat map and starts the stream. Idempotent.
func (s *SeatSession) Open(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	seats, err := s.backend.SeatMap(ctx, s.cfg.FlightID)
	if err != nil {
		s.logger.Warn("initial seat map fetch failed", "flight_id", s.cfg.FlightID, "error", err)
	} else {
		s.reconciler.ApplyFull(seats)
	}

	s.client.Start()
}

// Close tears down the session's single stream client. Safe to call
// multiple times.
func (s *SeatSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.client.Close()
}
