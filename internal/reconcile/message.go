package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/kirinyoku/tripsync-go/internal/domain"
)

// SeatMessageKind discriminates the two shapes the seat stream carries.
type SeatMessageKind string

const (
	// FullSnapshot is the authoritative complete seat set; anything not
	// present is discarded.
	FullSnapshot SeatMessageKind = "FULL_SNAPSHOT"
	// Delta updates a single seat by id; unknown ids are ignored.
	Delta SeatMessageKind = "DELTA"
)

// SeatMessage is the explicit tagged variant for an inbound seat payload.
type SeatMessage struct {
	Kind  SeatMessageKind
	Seats []domain.Seat
	Seat  domain.Seat
}

var errEmptyMessage = errors.New("empty seat message")

// DecodeSeatMessage resolves the wire shape once at the envelope boundary:
// a JSON array is a full snapshot, a JSON object is a single-seat delta.
// The server uses its snapshot and update channels inconsistently, so the
// shape, not the channel name, is authoritative.
func DecodeSeatMessage(data []byte) (SeatMessage, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return SeatMessage{}, errEmptyMessage
	}

	if trimmed[0] == '[' {
		var seats []domain.Seat
		if err := json.Unmarshal(data, &seats); err != nil {
			return SeatMessage{}, err
		}

		return SeatMessage{Kind: FullSnapshot, Seats: seats}, nil
	}

	var seat domain.Seat
	if err := json.Unmarshal(data, &seat); err != nil {
		return SeatMessage{}, err
	}

	return SeatMessage{Kind: Delta, Seat: seat}, nil
}
