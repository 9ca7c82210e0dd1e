package remote

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// StatusError carries a non-2xx response with the server-provided message
// forwarded verbatim when the body had one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("remote returned status %d", e.Code)
}
