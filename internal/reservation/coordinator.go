// Package reservation drives the per-seat select/reserve/release
// interaction against the remote booking service, reconciling its
// optimistic local state with the inbound availability stream.
package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kirinyoku/tripsync-go/internal/domain"
)

// SeatState is the interaction state of one seat, local-actor view.
// Seats with no recorded state are AVAILABLE.
type SeatState string

const (
	SeatAvailable     SeatState = "AVAILABLE"
	SeatUpsellPending SeatState = "UPSELL_PENDING"
	SeatReserving     SeatState = "RESERVING"
	SeatReservedByMe  SeatState = "RESERVED_BY_ME"
	SeatReleasing     SeatState = "RELEASING"
)

// SeatAPI is the remote mutation surface the coordinator drives.
type SeatAPI interface {
	ReserveSeat(ctx context.Context, seatID, userID string) (domain.Seat, error)
	ReleaseSeat(ctx context.Context, seatID, userID string) (domain.Seat, error)
}

// PreferenceStore persists the inferred seat preference after a successful
// reservation. Failures are swallowed.
type PreferenceStore interface {
	SavePreferences(ctx context.Context, userID string, p domain.SeatPreference) error
}

// Inventory is the coordinator's read view of the availability
// reconciler's output.
type Inventory interface {
	Get(id string) (domain.Seat, bool)
}

// Coordinator is the per-flight, per-identity reservation state machine.
type Coordinator struct {
	api    SeatAPI
	prefs  PreferenceStore
	inv    Inventory
	userID string
	logger *slog.Logger

	mu        sync.Mutex
	states    map[string]SeatState
	selection []string
	observers []func(domain.Selection)
}

func New(api SeatAPI, prefs PreferenceStore, inv Inventory, userID string, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		api:    api,
		prefs:  prefs,
		inv:    inv,
		userID: userID,
		logger: logger,
		states: make(map[string]SeatState),
	}
}

// SubscribeSelection registers an observer for selection changes. It fires
// with the new selection (ids plus recomputed premium total) after every
// accepted change.
func (c *Coordinator) SubscribeSelection(fn func(domain.Selection)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.observers = append(c.observers, fn)
}

// StateOf returns the interaction state of one seat.
func (c *Coordinator) StateOf(seatID string) SeatState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stateLocked(seatID)
}

// Selection returns the current selection snapshot.
func (c *Coordinator) Selection() domain.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selectionLocked()
}

// Toggle mirrors a seat tap: releases a held seat, asks for upsell
// confirmation on a premium seat, otherwise reserves.
//
// Returns:
//   - reservation.ErrUpsellConfirmationRequired when the caller must
//     confirm the premium surcharge first.
//   - reservation.ErrSeatNotFound when the seat is not in the inventory.
//   - reservation.ErrSeatUnavailable when another user holds the seat.
//   - reservation.ErrSeatBusy when a reserve/release is already in flight.
//   - the remote failure otherwise, with local state unchanged.
func (c *Coordinator) Toggle(ctx context.Context, seatID string) error {
	const op = "reservation.Toggle"

	c.mu.Lock()

	switch c.stateLocked(seatID) {
	case SeatReservedByMe:
		c.mu.Unlock()
		return c.release(ctx, seatID)
	case SeatReserving, SeatReleasing:
		c.mu.Unlock()
		return fmt.Errorf("%s:%w", op, ErrSeatBusy)
	case SeatUpsellPending:
		c.mu.Unlock()
		return fmt.Errorf("%s:%w", op, ErrUpsellConfirmationRequired)
	}

	seat, ok := c.inv.Get(seatID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%s:%w", op, ErrSeatNotFound)
	}

	if seat.ReservedByOther(c.userID) {
		c.mu.Unlock()
		return fmt.Errorf("%s:%w", op, ErrSeatUnavailable)
	}

	if seat.Premium {
		c.states[seatID] = SeatUpsellPending
		c.mu.Unlock()
		return fmt.Errorf("%s:%w", op, ErrUpsellConfirmationRequired)
	}

	c.mu.Unlock()

	return c.reserve(ctx, seatID, seat)
}

// ConfirmUpsell proceeds with the reserve the user just confirmed.
func (c *Coordinator) ConfirmUpsell(ctx context.Context, seatID string) error {
	const op = "reservation.ConfirmUpsell"

	c.mu.Lock()

	if c.stateLocked(seatID) != SeatUpsellPending {
		c.mu.Unlock()
		return fmt.Errorf("%s:%w", op, ErrNotPending)
	}

	seat, ok := c.inv.Get(seatID)
	if !ok {
		delete(c.states, seatID)
		c.mu.Unlock()
		return fmt.Errorf("%s:%w", op, ErrSeatNotFound)
	}

	c.mu.Unlock()

	return c.reserve(ctx, seatID, seat)
}

// CancelUpsell abandons a pending upsell confirmation.
func (c *Coordinator) CancelUpsell(seatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.states[seatID] == SeatUpsellPending {
		delete(c.states, seatID)
	}
}

func (c *Coordinator) reserve(ctx context.Context, seatID string, seat domain.Seat) error {
	const op = "reservation.reserve"

	c.mu.Lock()
	c.states[seatID] = SeatReserving
	c.mu.Unlock()

	if _, err := c.api.ReserveSeat(ctx, seatID, c.userID); err != nil {
		// Selection unchanged: the seat never left AVAILABLE from the
		// caller's point of view. Unless the stream converged it away in
		// the meantime, in which case the remote truth stands.
		c.mu.Lock()
		if c.states[seatID] == SeatReserving {
			delete(c.states, seatID)
		}
		c.mu.Unlock()

		return fmt.Errorf("%s:%w", op, err)
	}

	c.mu.Lock()
	c.states[seatID] = SeatReservedByMe
	if !c.selectedLocked(seatID) {
		c.selection = append(c.selection, seatID)
	}
	observers, sel := c.publishLocked()
	c.mu.Unlock()

	for _, fn := range observers {
		fn(sel)
	}

	// Best-effort: remember what kind of seat the user goes for. A failure
	// here must not roll back the reservation.
	if c.prefs != nil {
		if err := c.prefs.SavePreferences(ctx, c.userID, domain.SeatPreferenceFor(seat)); err != nil {
			c.logger.Warn("preference save failed", "seat_id", seatID, "error", err)
		}
	}

	return nil
}

func (c *Coordinator) release(ctx context.Context, seatID string) error {
	const op = "reservation.release"

	c.mu.Lock()
	c.states[seatID] = SeatReleasing
	c.mu.Unlock()

	if _, err := c.api.ReleaseSeat(ctx, seatID, c.userID); err != nil {
		c.mu.Lock()
		if c.states[seatID] == SeatReleasing {
			c.states[seatID] = SeatReservedByMe
		}
		c.mu.Unlock()

		return fmt.Errorf("%s:%w", op, err)
	}

	c.mu.Lock()
	delete(c.states, seatID)
	c.removeSelectedLocked(seatID)
	observers, sel := c.publishLocked()
	c.mu.Unlock()

	for _, fn := range observers {
		fn(sel)
	}

	return nil
}

// OnInventory is registered as an availability-reconciler observer. A seat
// the coordinator holds, or is mid-flight on, that arrives reserved by
// another user is benign convergence: the remote state is authoritative,
// the seat is dropped from the local selection, no error.
func (c *Coordinator) OnInventory(seats map[string]domain.Seat) {
	c.mu.Lock()

	changed := false

	for id, state := range c.states {
		seat, ok := seats[id]
		if !ok {
			continue
		}

		if !seat.ReservedByOther(c.userID) {
			continue
		}

		switch state {
		case SeatReservedByMe, SeatReserving, SeatUpsellPending:
			delete(c.states, id)
			if c.removeSelectedLocked(id) {
				changed = true
			}
			c.logger.Info("seat taken by another user", "seat_id", id)
		}
	}

	if !changed {
		c.mu.Unlock()
		return
	}

	observers, sel := c.publishLocked()
	c.mu.Unlock()

	for _, fn := range observers {
		fn(sel)
	}
}

func (c *Coordinator) stateLocked(seatID string) SeatState {
	if s, ok := c.states[seatID]; ok {
		return s
	}

	return SeatAvailable
}

func (c *Coordinator) selectedLocked(seatID string) bool {
	for _, id := range c.selection {
		if id == seatID {
			return true
		}
	}

	return false
}

func (c *Coordinator) removeSelectedLocked(seatID string) bool {
	for i, id := range c.selection {
		if id == seatID {
			c.selection = append(c.selection[:i], c.selection[i+1:]...)
			return true
		}
	}

	return false
}

// selectionLocked recomputes the premium surcharge total from the current
// inventory view.
func (c *Coordinator) selectionLocked() domain.Selection {
	ids := make([]string, len(c.selection))
	copy(ids, c.selection)

	var total float64
	for _, id := range ids {
		if seat, ok := c.inv.Get(id); ok && seat.Premium {
			total += seat.PremiumPrice
		}
	}

	return domain.Selection{SeatIDs: ids, TotalPrice: total}
}

func (c *Coordinator) publishLocked() ([]func(domain.Selection), domain.Selection) {
	observers := make([]func(domain.Selection), len(c.observers))
	copy(observers, c.observers)

	return observers, c.selectionLocked()
}
