package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// SSETransport dials a text/event-stream endpoint. Named SSE events map to
// named channels; events without an "event:" field arrive on
// DefaultChannel.
type SSETransport struct {
	URL    string
	Client *http.Client
}

func NewSSETransport(url string, client *http.Client) *SSETransport {
	if client == nil {
		client = http.DefaultClient
	}

	return &SSETransport{URL: url, Client: client}
}

func (t *SSETransport) Dial(ctx context.Context) (Conn, error) {
	const op = "stream.SSETransport.Dial"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	return &sseConn{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
	}, nil
}

type sseConn struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

// Recv parses one SSE event: "event:" sets the channel, "data:" lines
// accumulate, a blank line dispatches. Comment lines (":") and unknown
// fields are ignored per the wire format.
func (c *sseConn) Recv() (Event, error) {
	var (
		channel string
		data    [][]byte
	)

	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			return Event{}, err
		}

		line = bytes.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if len(data) == 0 {
				// Keep-alive separator, nothing accumulated.
				channel = ""
				continue
			}

			return Event{
				Channel: channel,
				Data:    bytes.Join(data, []byte("\n")),
			}, nil
		}

		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))

		switch string(field) {
		case "event":
			channel = string(value)
		case "data":
			data = append(data, value)
		}
	}
}

func (c *sseConn) Close() error {
	return c.body.Close()
}
