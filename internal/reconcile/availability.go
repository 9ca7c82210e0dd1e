package reconcile

import (
	"log/slog"
	"sync"

	"github.com/kirinyoku/tripsync-go/internal/domain"
)

// Availability owns the seat inventory for one flight, keyed by seat id.
type Availability struct {
	logger *slog.Logger

	mu        sync.Mutex
	seats     map[string]domain.Seat
	observers []func(map[string]domain.Seat)
}

func NewAvailability(logger *slog.Logger) *Availability {
	return &Availability{
		logger: logger,
		seats:  make(map[string]domain.Seat),
	}
}

// Subscribe registers an observer invoked with a copy of the inventory
// after every accepted change.
func (a *Availability) Subscribe(fn func(map[string]domain.Seat)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.observers = append(a.observers, fn)
}

// ApplyFull replaces the inventory with the given authoritative set.
// Seats absent from the set are discarded. Idempotent.
func (a *Availability) ApplyFull(seats []domain.Seat) {
	a.mu.Lock()

	next := make(map[string]domain.Seat, len(seats))
	for _, s := range seats {
		next[s.ID] = s
	}
	a.seats = next

	observers, snapshot := a.publishLocked()
	a.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

// ApplyPatch updates the seat whose id matches. A patch for an unknown id
// is ignored; patches never insert.
func (a *Availability) ApplyPatch(seat domain.Seat) {
	a.mu.Lock()

	if _, ok := a.seats[seat.ID]; !ok {
		a.mu.Unlock()
		a.logger.Debug("ignoring patch for unknown seat", "seat_id", seat.ID)
		return
	}

	a.seats[seat.ID] = seat

	observers, snapshot := a.publishLocked()
	a.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

// Apply routes a decoded seat message to the matching operation.
func (a *Availability) Apply(msg SeatMessage) {
	switch msg.Kind {
	case FullSnapshot:
		a.ApplyFull(msg.Seats)
	case Delta:
		a.ApplyPatch(msg.Seat)
	}
}

// HandleRaw decodes a wire payload and applies it. A decode failure drops
// that single message; the stream stays up.
func (a *Availability) HandleRaw(data []byte) {
	msg, err := DecodeSeatMessage(data)
	if err != nil {
		a.logger.Debug("dropping undecodable seat message", "error", err)
		return
	}

	a.Apply(msg)
}

// Get returns one seat by id.
func (a *Availability) Get(id string) (domain.Seat, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.seats[id]
	return s, ok
}

// Snapshot returns a copy of the full inventory.
func (a *Availability) Snapshot() map[string]domain.Seat {
	a.mu.Lock()
	defer a.mu.Unlock()

	return copySeats(a.seats)
}

func (a *Availability) publishLocked() ([]func(map[string]domain.Seat), map[string]domain.Seat) {
	observers := make([]func(map[string]domain.Seat), len(a.observers))
	copy(observers, a.observers)

	return observers, copySeats(a.seats)
}

func copySeats(in map[string]domain.Seat) map[string]domain.Seat {
	out := make(map[string]domain.Seat, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
