package history

import "errors"

var (
	// ErrDeviceRequired is returned when a record or query has no device.
	ErrDeviceRequired = errors.New("history: device is required")

	// ErrInvalidRetention is returned by Prune for a non-positive age.
	ErrInvalidRetention = errors.New("history: retention must be positive")
)
