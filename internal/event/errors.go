package event

import "errors"

var (
	// ErrMalformedEvent marks an unparseable or contradictory upstream event.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrOutOfOrderEvent marks an event whose timestamp precedes the last
	// accepted one.
	ErrOutOfOrderEvent = errors.New("out-of-order event")
)
