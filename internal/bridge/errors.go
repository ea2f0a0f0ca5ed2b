package bridge

import "errors"

// Domain-specific errors for the MQTT bridge.
var (
	// ErrMalformedPayload is returned by the decoders when a payload or its
	// topic does not have the expected form.
	ErrMalformedPayload = errors.New("bridge: malformed payload")

	// ErrStopped is returned when SetDeviceID is called after Stop.
	ErrStopped = errors.New("bridge: stopped")

	// ErrSubscribeFailed is returned when one or more topic subscriptions fail.
	ErrSubscribeFailed = errors.New("bridge: subscribe failed")
)
