package dingz

import (
	"errors"
	"fmt"
)

// Domain errors for the dingz client package.
var (
	// ErrRequestFailed is returned when a request could not be completed
	// after exhausting its retry policy. The most recent attempt error is
	// wrapped alongside it.
	ErrRequestFailed = errors.New("dingz: request failed")

	// ErrInvalidBaseURL is returned when the device address cannot be parsed.
	ErrInvalidBaseURL = errors.New("dingz: invalid base url")

	// ErrNoDevice is returned when the device endpoint reports no devices.
	ErrNoDevice = errors.New("dingz: no device in response")

	// ErrInvalidArgument is returned when an action is called with a value
	// the device would reject.
	ErrInvalidArgument = errors.New("dingz: invalid argument")
)

// StatusError reports a non-2xx response from the device.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("dingz: %s %s: unexpected status %d", e.Method, e.Path, e.Code)
}
