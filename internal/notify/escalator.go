// Package notify decides when a status change deserves interrupting the
// user, and delivers the resulting notification through a permission-gated
// sink.
package notify

import (
	"fmt"

	"github.com/kirinyoku/tripsync-go/internal/domain"
)

// Notification is a user-facing alert descriptor.
type Notification struct {
	Title string
	Body  string
}

// Decide is a pure function of (previous snapshot or nil, new snapshot).
// It returns at most one notification. Rules are evaluated in order and
// the first match wins; they are never cumulative.
func Decide(prev *domain.StatusSnapshot, next domain.StatusSnapshot) (Notification, bool) {
	if prev == nil {
		switch next.Status {
		case domain.PhaseDelayed:
			return Notification{
				Title: fmt.Sprintf("Flight %s delayed", next.FlightName),
				Body:  delayBody(next),
			}, true
		case domain.PhaseCancelled:
			return Notification{
				Title: fmt.Sprintf("Flight %s cancelled", next.FlightName),
				Body:  next.DelayReason,
			}, true
		}

		return Notification{}, false
	}

	enteredDelayed := next.Status == domain.PhaseDelayed && prev.Status != domain.PhaseDelayed
	enteredCancelled := next.Status == domain.PhaseCancelled && prev.Status != domain.PhaseCancelled

	if enteredDelayed || enteredCancelled {
		return Notification{
			Title: fmt.Sprintf("Flight %s %s", next.FlightName, next.Status),
			Body:  delayBody(next),
		}, true
	}

	if next.DelayMinutes > prev.DelayMinutes+10 {
		body := fmt.Sprintf("Now delayed by %d minutes", next.DelayMinutes)
		if next.DelayReason != "" {
			body += " — " + next.DelayReason
		}

		return Notification{
			Title: fmt.Sprintf("Delay increased: %s", next.FlightName),
			Body:  body,
		}, true
	}

	if next.Status == domain.PhaseArrived && prev.Status != domain.PhaseArrived {
		arrival := "N/A"
		if next.EstimatedArrival != nil {
			arrival = next.EstimatedArrival.Format("2006-01-02 15:04:05")
		}

		return Notification{
			Title: fmt.Sprintf("Flight arrived: %s", next.FlightName),
			Body:  "Arrived at " + arrival,
		}, true
	}

	return Notification{}, false
}

func delayBody(s domain.StatusSnapshot) string {
	if s.DelayReason != "" {
		return s.DelayReason
	}

	if s.DelayMinutes > 0 {
		return fmt.Sprintf("Delayed by %d minutes", s.DelayMinutes)
	}

	return ""
}
