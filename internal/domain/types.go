package domain

import "time"

type FlightPhase string

const (
	PhaseOnTime    FlightPhase = "ON_TIME"
	PhaseDelayed   FlightPhase = "DELAYED"
	PhaseCancelled FlightPhase = "CANCELLED"
	PhaseArrived   FlightPhase = "ARRIVED"
)

// StatusSnapshot is a complete view of a flight's live status at one
// instant. It is always replaced wholesale, never merged field by field.
type StatusSnapshot struct {
	FlightID         string      `json:"flightId"`
	FlightName       string      `json:"flightName"`
	Status           FlightPhase `json:"status"`
	DelayMinutes     int64       `json:"delayMinutes"`
	DelayReason      string      `json:"delayReason,omitempty"`
	EstimatedArrival *time.Time  `json:"estimatedArrival,omitempty"`
	LastUpdated      *time.Time  `json:"lastUpdated,omitempty"`
}

type SeatType string

const (
	SeatWindow SeatType = "WINDOW"
	SeatAisle  SeatType = "AISLE"
	SeatMiddle SeatType = "MIDDLE"
)

// Seat is one unit of perishable inventory. ID is the only identity;
// ReservedBy is empty when the seat is free.
type Seat struct {
	ID           string  `json:"id"`
	FlightID     string  `json:"flightId"`
	Row          string  `json:"row"`
	Col          string  `json:"col"`
	Category     string  `json:"category,omitempty"`
	Window       bool    `json:"window"`
	Aisle        bool    `json:"aisle"`
	Premium      bool    `json:"premium"`
	PremiumPrice float64 `json:"premiumPrice"`
	Reserved     bool    `json:"reserved"`
	ReservedBy   string  `json:"reservedBy,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// ReservedByOther reports whether the seat is held by some identity other
// than userID.
func (s Seat) ReservedByOther(userID string) bool {
	return s.Reserved && s.ReservedBy != "" && s.ReservedBy != userID
}

type SeatPreference struct {
	PreferredSeatType SeatType `json:"preferredSeatType"`
	PreferredSeatID   string   `json:"preferredSeatId,omitempty"`
}

// SeatPreferenceFor infers a seat-type preference from the seat's
// positional flags.
func SeatPreferenceFor(s Seat) SeatPreference {
	t := SeatMiddle
	if s.Window {
		t = SeatWindow
	} else if s.Aisle {
		t = SeatAisle
	}

	return SeatPreference{
		PreferredSeatType: t,
		PreferredSeatID:   s.ID,
	}
}

// Selection is the ordered set of seat ids held by the local actor plus
// the derived premium surcharge total.
type Selection struct {
	SeatIDs    []string
	TotalPrice float64
}

// Contains reports whether id is part of the selection.
func (s Selection) Contains(id string) bool {
	for _, cur := range s.SeatIDs {
		if cur == id {
			return true
		}
	}

	return false
}

// StatusMutation is the ops/test payload for forcing a status change on
// the remote service.
type StatusMutation struct {
	Status       FlightPhase `json:"status"`
	DelayMinutes int64       `json:"delayMinutes"`
	DelayReason  string      `json:"delayReason,omitempty"`
}
