// Package remote is the HTTP client for the booking service collaborators:
// flight status, seat inventory and user preferences. All state lives on
// the remote side; this package only moves it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirinyoku/tripsync-go/internal/domain"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	base string
	http *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// FlightStatus fetches the current status snapshot for one flight.
func (c *Client) FlightStatus(ctx context.Context, flightID string) (domain.StatusSnapshot, error) {
	const op = "remote.FlightStatus"

	var out domain.StatusSnapshot

	path := "/api/flight-status/" + url.PathEscape(flightID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// MutateFlightStatus submits a status mutation. Ops/test tooling only.
func (c *Client) MutateFlightStatus(ctx context.Context, flightID string, m domain.StatusMutation) error {
	const op = "remote.MutateFlightStatus"

	path := "/api/flight-status/" + url.PathEscape(flightID)
	if err := c.do(ctx, http.MethodPost, path, m, nil); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// SeatMap fetches the complete seat inventory for one flight.
func (c *Client) SeatMap(ctx context.Context, flightID string) ([]domain.Seat, error) {
	const op = "remote.SeatMap"

	var out []domain.Seat

	path := "/api/seats/flight/" + url.PathEscape(flightID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ReserveSeat reserves one seat for userID and returns the authoritative
// seat state from the server.
func (c *Client) ReserveSeat(ctx context.Context, seatID, userID string) (domain.Seat, error) {
	const op = "remote.ReserveSeat"

	var out domain.Seat

	path := fmt.Sprintf("/api/seats/%s/reserve?userId=%s",
		url.PathEscape(seatID), url.QueryEscape(userID))
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return domain.Seat{}, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ReleaseSeat releases a seat previously reserved by userID.
func (c *Client) ReleaseSeat(ctx context.Context, seatID, userID string) (domain.Seat, error) {
	const op = "remote.ReleaseSeat"

	var out domain.Seat

	path := fmt.Sprintf("/api/seats/%s/release?userId=%s",
		url.PathEscape(seatID), url.QueryEscape(userID))
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return domain.Seat{}, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Preferences fetches the stored seat preference for one user.
func (c *Client) Preferences(ctx context.Context, userID string) (domain.SeatPreference, error) {
	const op = "remote.Preferences"

	var out domain.SeatPreference

	path := "/api/preferences/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return domain.SeatPreference{}, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// SavePreferences stores the seat preference for one user.
func (c *Client) SavePreferences(ctx context.Context, userID string, p domain.SeatPreference) error {
	const op = "remote.SavePreferences"

	path := "/api/preferences/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodPost, path, p, nil); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// StatusStreamURL is the SSE endpoint for one flight's status stream.
func (c *Client) StatusStreamURL(flightID string) string {
	return c.base + "/api/flight-status/stream/" + url.PathEscape(flightID)
}

// SeatStreamURL is the SSE endpoint for one flight's seat stream.
func (c *Client) SeatStreamURL(flightID string) string {
	return c.base + "/api/seats/stream/" + url.PathEscape(flightID)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code:    resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}

	return nil
}

// readErrorMessage extracts a server-provided message from an error body:
// either {"message": ...} / {"error": ...} JSON or the raw text.
func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(b) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(b, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	return strings.TrimSpace(string(b))
}
