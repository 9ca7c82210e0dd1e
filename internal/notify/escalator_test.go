package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tripsync-go/internal/domain"
)

func snap(status domain.FlightPhase, delay int64) domain.StatusSnapshot {
	return domain.StatusSnapshot{
		FlightID:     "fl-1",
		FlightName:   "AI-202",
		Status:       status,
		DelayMinutes: delay,
	}
}

func TestDecide_FirstSnapshot(t *testing.T) {
	tests := []struct {
		name       string
		next       domain.StatusSnapshot
		wantNotify bool
		wantTitle  string
	}{
		{
			name:       "delayed notifies",
			next:       snap(domain.PhaseDelayed, 15),
			wantNotify: true,
			wantTitle:  "Flight AI-202 delayed",
		},
		{
			name:       "cancelled notifies",
			next:       snap(domain.PhaseCancelled, 0),
			wantNotify: true,
			wantTitle:  "Flight AI-202 cancelled",
		},
		{
			name: "on time is quiet",
			next: snap(domain.PhaseOnTime, 0),
		},
		{
			name: "arrived is quiet",
			next: snap(domain.PhaseArrived, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := Decide(nil, tt.next)
			require.Equal(t, tt.wantNotify, ok)
			if ok {
				require.Equal(t, tt.wantTitle, n.Title)
			}
		})
	}
}

func TestDecide_Transitions(t *testing.T) {
	prev := snap(domain.PhaseOnTime, 0)

	n, ok := Decide(&prev, snap(domain.PhaseDelayed, 20))
	require.True(t, ok)
	require.Equal(t, "Flight AI-202 DELAYED", n.Title)

	n, ok = Decide(&prev, snap(domain.PhaseCancelled, 0))
	require.True(t, ok)
	require.Equal(t, "Flight AI-202 CANCELLED", n.Title)
}

func TestDecide_DelayIncrease(t *testing.T) {
	// Status unchanged, delay grows past the 10 minute threshold.
	prev := snap(domain.PhaseOnTime, 0)
	next := snap(domain.PhaseOnTime, 25)
	next.DelayReason = "Weather issue"

	n, ok := Decide(&prev, next)
	require.True(t, ok)
	require.Equal(t, "Delay increased: AI-202", n.Title)
	require.Contains(t, n.Body, "25 minutes")
	require.Contains(t, n.Body, "Weather issue")
}

func TestDecide_SmallDelayChangeIsQuiet(t *testing.T) {
	prev := snap(domain.PhaseDelayed, 20)
	next := snap(domain.PhaseDelayed, 22)

	_, ok := Decide(&prev, next)
	require.False(t, ok)
}

func TestDecide_ExactThresholdIsQuiet(t *testing.T) {
	prev := snap(domain.PhaseDelayed, 20)
	next := snap(domain.PhaseDelayed, 30)

	// Delta of exactly 10 does not cross the "> 10" bar.
	_, ok := Decide(&prev, next)
	require.False(t, ok)
}

func TestDecide_CancellationWinsOverDelayIncrease(t *testing.T) {
	prev := snap(domain.PhaseDelayed, 20)
	next := snap(domain.PhaseCancelled, 90)

	n, ok := Decide(&prev, next)
	require.True(t, ok)
	require.Equal(t, "Flight AI-202 CANCELLED", n.Title)
}

func TestDecide_Arrival(t *testing.T) {
	prev := snap(domain.PhaseDelayed, 20)
	next := snap(domain.PhaseArrived, 0)
	eta := time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)
	next.EstimatedArrival = &eta

	n, ok := Decide(&prev, next)
	require.True(t, ok)
	require.Equal(t, "Flight arrived: AI-202", n.Title)
	require.Contains(t, n.Body, "2025-03-14 18:30:00")
}

func TestDecide_ArrivalWithoutETA(t *testing.T) {
	prev := snap(domain.PhaseOnTime, 0)

	n, ok := Decide(&prev, snap(domain.PhaseArrived, 0))
	require.True(t, ok)
	require.Contains(t, n.Body, "N/A")
}

func TestDecide_Deterministic(t *testing.T) {
	prev := snap(domain.PhaseOnTime, 0)
	next := snap(domain.PhaseDelayed, 45)
	next.DelayReason = "Crew shortage"

	first, ok := Decide(&prev, next)
	require.True(t, ok)

	for i := 0; i < 100; i++ {
		again, ok := Decide(&prev, next)
		require.True(t, ok)
		require.Equal(t, first, again)
	}
}
