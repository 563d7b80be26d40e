package broker

import "errors"

// Domain-specific errors for broker session operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a
	// disconnected session.
	ErrNotConnected = errors.New("broker: session not connected")

	// ErrConnectFailed is returned when a connect attempt fails.
	ErrConnectFailed = errors.New("broker: connect failed")

	// ErrSubscribeFailed is returned when the devicebound subscribe is not
	// confirmed by the broker.
	ErrSubscribeFailed = errors.New("broker: subscribe failed")

	// ErrPublishFailed is returned when an outbound frame could not be
	// handed to the transport. Publishes are at-most-once: the caller logs
	// and moves on, it never retries.
	ErrPublishFailed = errors.New("broker: publish failed")

	// ErrPayloadTooLarge signals an inbound frame exceeding the bounded
	// payload buffer. The frame is dropped; the session stays up.
	ErrPayloadTooLarge = errors.New("broker: inbound payload exceeds buffer")
)
