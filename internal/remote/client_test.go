package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tripsync-go/internal/domain"
)

func TestFlightStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/flight-status/fl-1", r.URL.Path)

		_ = json.NewEncoder(w).Encode(domain.StatusSnapshot{
			FlightID:     "fl-1",
			FlightName:   "AI-202",
			Status:       domain.PhaseDelayed,
			DelayMinutes: 40,
			DelayReason:  "Weather issue",
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	got, err := c.FlightStatus(context.Background(), "fl-1")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseDelayed, got.Status)
	require.EqualValues(t, 40, got.DelayMinutes)
}

func TestFlightStatus_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	_, err := c.FlightStatus(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMutateFlightStatus_SendsPayload(t *testing.T) {
	var got domain.StatusMutation

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	err := c.MutateFlightStatus(context.Background(), "fl-1", domain.StatusMutation{
		Status:       domain.PhaseDelayed,
		DelayMinutes: 30,
		DelayReason:  "ATC slot restriction",
	})
	require.NoError(t, err)
	require.Equal(t, domain.PhaseDelayed, got.Status)
	require.EqualValues(t, 30, got.DelayMinutes)
}

func TestReserveSeat_ForwardsServerMessageVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Seat already reserved by another user"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	_, err := c.ReserveSeat(context.Background(), "1A", "user-1")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusConflict, statusErr.Code)
	require.Equal(t, "Seat already reserved by another user", statusErr.Message)
}

func TestReserveSeat_QueryCarriesUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/seats/1A/reserve", r.URL.Path)
		require.Equal(t, "user-1", r.URL.Query().Get("userId"))

		_ = json.NewEncoder(w).Encode(domain.Seat{ID: "1A", Reserved: true, ReservedBy: "user-1"})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	seat, err := c.ReserveSeat(context.Background(), "1A", "user-1")
	require.NoError(t, err)
	require.True(t, seat.Reserved)
	require.Equal(t, "user-1", seat.ReservedBy)
}

func TestSavePreferences_RoundTrip(t *testing.T) {
	var got domain.SeatPreference

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/preferences/user-1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	err := c.SavePreferences(context.Background(), "user-1", domain.SeatPreference{
		PreferredSeatType: domain.SeatWindow,
		PreferredSeatID:   "1A",
	})
	require.NoError(t, err)
	require.Equal(t, domain.SeatWindow, got.PreferredSeatType)
}

func TestStreamURLs(t *testing.T) {
	c := New(Config{BaseURL: "http://api.example/"})

	require.Equal(t, "http://api.example/api/flight-status/stream/fl-1", c.StatusStreamURL("fl-1"))
	require.Equal(t, "http://api.example/api/seats/stream/fl-1", c.SeatStreamURL("fl-1"))
}

func TestStatusError_FallsBackToRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	_, err := c.SeatMap(context.Background(), "fl-1")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "boom", statusErr.Message)
}
