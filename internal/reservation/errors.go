package reservation

import "errors"

var (
	// ErrUpsellConfirmationRequired means the seat is premium and the
	// caller must confirm the surcharge before a reserve is attempted.
	ErrUpsellConfirmationRequired = errors.New("premium seat requires upsell confirmation")

	ErrSeatNotFound    = errors.New("seat not found")
	ErrSeatUnavailable = errors.New("seat is reserved by another user")
	ErrSeatBusy        = errors.New("seat has an operation in flight")
	ErrNotPending      = errors.New("seat has no pending upsell confirmation")
)
