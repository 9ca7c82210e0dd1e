// Package reconcile merges inbound stream messages into authoritative
// local state: one status reconciler and one availability reconciler per
// entity id.
package reconcile

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/kirinyoku/tripsync-go/internal/domain"
)

// Escalator receives the true prior snapshot (nil before the first
// message) and the accepted new snapshot before observers see it.
type Escalator func(prev *domain.StatusSnapshot, next domain.StatusSnapshot)

// Status holds the latest status snapshot for one flight, or none before
// the first accepted message.
type Status struct {
	logger    *slog.Logger
	escalator Escalator

	mu        sync.Mutex
	current   domain.StatusSnapshot
	hasValue  bool
	observers []func(domain.StatusSnapshot)
}

func NewStatus(escalator Escalator, logger *slog.Logger) *Status {
	return &Status{
		logger:    logger,
		escalator: escalator,
	}
}

// Subscribe registers an observer for accepted snapshots. Observers run
// after the escalator, in registration order.
func (s *Status) Subscribe(fn func(domain.StatusSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observers = append(s.observers, fn)
}

// Current returns the held snapshot, if any.
func (s *Status) Current() (domain.StatusSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current, s.hasValue
}

// Apply fully replaces the held snapshot with next. There is no field
// merge and no sequence check: arrival order wins, so a stale replay can
// regress visible state (accepted trade-off, the server assigns no
// sequence numbers). The escalator sees (prev, next) before observers see
// next.
func (s *Status) Apply(next domain.StatusSnapshot) {
	s.mu.Lock()

	var prev *domain.StatusSnapshot
	if s.hasValue {
		p := s.current
		prev = &p
	}

	s.current = next
	s.hasValue = true
	observers := make([]func(domain.StatusSnapshot), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	if s.escalator != nil {
		s.escalator(prev, next)
	}

	for _, fn := range observers {
		fn(next)
	}
}

// HandleRaw decodes a wire snapshot and applies it. A decode failure
// drops that single message; the stream stays up.
func (s *Status) HandleRaw(data []byte) {
	var snap domain.StatusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Debug("dropping undecodable status message", "error", err)
		return
	}

	s.Apply(snap)
}
