package ticker

import "errors"

// Error kinds surfaced by the ticker core. NotConnected is raised
// synchronously to the caller, and ReconnectExhausted is returned by Run.
// The frame and text errors come back from the decoding helpers; the
// Client logs them and drops the frame instead of returning them to the
// host.
var (
	// ErrNotConnected is returned by Subscribe, Unsubscribe and SetMode
	// when called while the client isn't connected. The ledger is left
	// untouched.
	ErrNotConnected = errors.New("ticker: not connected")

	// ErrMalformedFrame means a binary frame's declared packet lengths
	// don't fit inside the frame. The frame is dropped.
	ErrMalformedFrame = errors.New("ticker: malformed binary frame")

	// ErrMalformedText means a text frame wasn't a JSON object, or had
	// no "type" field.
	ErrMalformedText = errors.New("ticker: malformed text frame")

	// ErrUnknownMessageType means a text frame's "type" field wasn't
	// one of order, message, error.
	ErrUnknownMessageType = errors.New("ticker: unknown message type")

	// ErrReconnectExhausted is returned by Run when the reconnect loop
	// gives up after maxReconnectTries attempts.
	ErrReconnectExhausted = errors.New("ticker: reconnect attempts exhausted")
)
