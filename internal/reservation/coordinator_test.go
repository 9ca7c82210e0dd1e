package reservation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tripsync-go/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeInventory struct {
	mu    sync.Mutex
	seats map[string]domain.Seat
}

func (f *fakeInventory) Get(id string) (domain.Seat, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.seats[id]
	return s, ok
}

type fakeAPI struct {
	reserveErr error
	releaseErr error
	reserved   []string
	released   []string
}

func (f *fakeAPI) ReserveSeat(ctx context.Context, seatID, userID string) (domain.Seat, error) {
	if f.reserveErr != nil {
		return domain.Seat{}, f.reserveErr
	}

	f.reserved = append(f.reserved, seatID)
	return domain.Seat{ID: seatID, Reserved: true, ReservedBy: userID}, nil
}

func (f *fakeAPI) ReleaseSeat(ctx context.Context, seatID, userID string) (domain.Seat, error) {
	if f.releaseErr != nil {
		return domain.Seat{}, f.releaseErr
	}

	f.released = append(f.released, seatID)
	return domain.Seat{ID: seatID}, nil
}

type fakePrefs struct {
	err   error
	saved []domain.SeatPreference
}

func (f *fakePrefs) SavePreferences(ctx context.Context, userID string, p domain.SeatPreference) error {
	if f.err != nil {
		return f.err
	}

	f.saved = append(f.saved, p)
	return nil
}

func inventory(seats ...domain.Seat) *fakeInventory {
	m := make(map[string]domain.Seat, len(seats))
	for _, s := range seats {
		m[s.ID] = s
	}

	return &fakeInventory{seats: m}
}

func TestToggle_ReservesRegularSeat(t *testing.T) {
	api := &fakeAPI{}
	prefs := &fakePrefs{}
	inv := inventory(domain.Seat{ID: "1A", Window: true})

	c := New(api, prefs, inv, "user-1", testLogger())

	err := c.Toggle(context.Background(), "1A")
	require.NoError(t, err)

	require.Equal(t, SeatReservedByMe, c.StateOf("1A"))
	require.Equal(t, []string{"1A"}, c.Selection().SeatIDs)
	require.Equal(t, []string{"1A"}, api.reserved)

	// Window seat infers a WINDOW preference.
	require.Len(t, prefs.saved, 1)
	require.Equal(t, domain.SeatWindow, prefs.saved[0].PreferredSeatType)
	require.Equal(t, "1A", prefs.saved[0].PreferredSeatID)
}

func TestToggle_ReserveFailureLeavesSeatAvailable(t *testing.T) {
	api := &fakeAPI{reserveErr: errors.New("seat already reserved")}
	inv := inventory(domain.Seat{ID: "1A"})

	c := New(api, &fakePrefs{}, inv, "user-1", testLogger())

	err := c.Toggle(context.Background(), "1A")
	require.Error(t, err)
	require.Contains(t, err.Error(), "seat already reserved")

	require.Equal(t, SeatAvailable, c.StateOf("1A"))
	require.Empty(t, c.Selection().SeatIDs)
}

func TestToggle_PremiumRequiresConfirmation(t *testing.T) {
	api := &fakeAPI{}
	inv := inventory(domain.Seat{ID: "2A", Premium: true, PremiumPrice: 49.5})

	c := New(api, &fakePrefs{}, inv, "user-1", testLogger())

	err := c.Toggle(context.Background(), "2A")
	require.ErrorIs(t, err, ErrUpsellConfirmationRequired)
	require.Equal(t, SeatUpsellPending, c.StateOf("2A"))
	require.Empty(t, api.reserved)

	err = c.ConfirmUpsell(context.Background(), "2A")
	require.NoError(t, err)
	require.Equal(t, SeatReservedByMe, c.StateOf("2A"))
	require.InDelta(t, 49.5, c.Selection().TotalPrice, 1e-9)
}

func TestCancelUpsell(t *testing.T) {
	inv := inventory(domain.Seat{ID: "2A", Premium: true})

	c := New(&fakeAPI{}, &fakePrefs{}, inv, "user-1", testLogger())

	_ = c.Toggle(context.Background(), "2A")
	require.Equal(t, SeatUpsellPending, c.StateOf("2A"))

	c.CancelUpsell("2A")
	require.Equal(t, SeatAvailable, c.StateOf("2A"))

	err := c.ConfirmUpsell(context.Background(), "2A")
	require.ErrorIs(t, err, ErrNotPending)
}

func TestToggle_ReleaseRemovesFromSelection(t *testing.T) {
	api := &fakeAPI{}
	inv := inventory(domain.Seat{ID: "1A"}, domain.Seat{ID: "1B"})

	c := New(api, &fakePrefs{}, inv, "user-1", testLogger())

	require.NoError(t, c.Toggle(context.Background(), "1A"))
	require.NoError(t, c.Toggle(context.Background(), "1B"))
	require.Equal(t, []string{"1A", "1B"}, c.Selection().SeatIDs)

	// Second tap on a held seat releases it.
	require.NoError(t, c.Toggle(context.Background(), "1A"))
	require.Equal(t, []string{"1B"}, c.Selection().SeatIDs)
	require.Equal(t, []string{"1A"}, api.released)
	require.Equal(t, SeatAvailable, c.StateOf("1A"))
}

func TestToggle_ReleaseFailureKeepsSeat(t *testing.T) {
	api := &fakeAPI{}
	inv := inventory(domain.Seat{ID: "1A"})

	c := New(api, &fakePrefs{}, inv, "user-1", testLogger())
	require.NoError(t, c.Toggle(context.Background(), "1A"))

	api.releaseErr = errors.New("release rejected")

	err := c.Toggle(context.Background(), "1A")
	require.Error(t, err)
	require.Contains(t, err.Error(), "release rejected")

	require.Equal(t, SeatReservedByMe, c.StateOf("1A"))
	require.Equal(t, []string{"1A"}, c.Selection().SeatIDs)
}

func TestToggle_SeatHeldByOther(t *testing.T) {
	inv := inventory(domain.Seat{ID: "1A", Reserved: true, ReservedBy: "user-2"})

	c := New(&fakeAPI{}, &fakePrefs{}, inv, "user-1", testLogger())

	err := c.Toggle(context.Background(), "1A")
	require.ErrorIs(t, err, ErrSeatUnavailable)
}

func TestToggle_UnknownSeat(t *testing.T) {
	c := New(&fakeAPI{}, &fakePrefs{}, inventory(), "user-1", testLogger())

	err := c.Toggle(context.Background(), "9Z")
	require.ErrorIs(t, err, ErrSeatNotFound)
}

func TestPreferenceSaveFailureDoesNotRollBack(t *testing.T) {
	api := &fakeAPI{}
	prefs := &fakePrefs{err: errors.New("preference store down")}
	inv := inventory(domain.Seat{ID: "1A", Aisle: true})

	c := New(api, prefs, inv, "user-1", testLogger())

	// Best-effort side effect: reservation stands.
	err := c.Toggle(context.Background(), "1A")
	require.NoError(t, err)
	require.Equal(t, SeatReservedByMe, c.StateOf("1A"))
	require.Equal(t, []string{"1A"}, c.Selection().SeatIDs)
}

func TestOnInventory_ConvergesSeatTakenByOther(t *testing.T) {
	api := &fakeAPI{}
	inv := inventory(domain.Seat{ID: "1A"}, domain.Seat{ID: "1B"})

	c := New(api, &fakePrefs{}, inv, "user-1", testLogger())
	require.NoError(t, c.Toggle(context.Background(), "1A"))
	require.NoError(t, c.Toggle(context.Background(), "1B"))

	var published []domain.Selection
	c.SubscribeSelection(func(s domain.Selection) { published = append(published, s) })

	// Stream reports 1A as reserved by someone else: benign convergence,
	// no error, seat dropped from the selection.
	c.OnInventory(map[string]domain.Seat{
		"1A": {ID: "1A", Reserved: true, ReservedBy: "user-2"},
		"1B": {ID: "1B", Reserved: true, ReservedBy: "user-1"},
	})

	require.Equal(t, SeatAvailable, c.StateOf("1A"))
	require.Equal(t, SeatReservedByMe, c.StateOf("1B"))
	require.Equal(t, []string{"1B"}, c.Selection().SeatIDs)
	require.Len(t, published, 1)
}

func TestOnInventory_OwnReservationIsUntouched(t *testing.T) {
	api := &fakeAPI{}
	inv := inventory(domain.Seat{ID: "1A"})

	c := New(api, &fakePrefs{}, inv, "user-1", testLogger())
	require.NoError(t, c.Toggle(context.Background(), "1A"))

	c.OnInventory(map[string]domain.Seat{
		"1A": {ID: "1A", Reserved: true, ReservedBy: "user-1"},
	})

	require.Equal(t, SeatReservedByMe, c.StateOf("1A"))
	require.Equal(t, []string{"1A"}, c.Selection().SeatIDs)
}

func TestSelectionTotal_SumsPremiumSurchargesOnly(t *testing.T) {
	api := &fakeAPI{}
	inv := inventory(
		domain.Seat{ID: "1A"},
		domain.Seat{ID: "2A", Premium: true, PremiumPrice: 30},
		domain.Seat{ID: "2B", Premium: true, PremiumPrice: 20},
	)

	c := New(api, &fakePrefs{}, inv, "user-1", testLogger())

	require.NoError(t, c.Toggle(context.Background(), "1A"))

	require.ErrorIs(t, c.Toggle(context.Background(), "2A"), ErrUpsellConfirmationRequired)
	require.NoError(t, c.ConfirmUpsell(context.Background(), "2A"))

	require.ErrorIs(t, c.Toggle(context.Background(), "2B"), ErrUpsellConfirmationRequired)
	require.NoError(t, c.ConfirmUpsell(context.Background(), "2B"))

	sel := c.Selection()
	require.Equal(t, []string{"1A", "2A", "2B"}, sel.SeatIDs)
	require.InDelta(t, 50, sel.TotalPrice, 1e-9)

	// Releasing a premium seat recomputes the total.
	require.NoError(t, c.Toggle(context.Background(), "2A"))
	require.InDelta(t, 20, c.Selection().TotalPrice, 1e-9)
}
