package shared

import "errors"

// Domain-specific errors for device composition.
var (
	// ErrStartupFailed is returned when a device cannot complete its first
	// refresh. It wraps the underlying cause.
	ErrStartupFailed = errors.New("shared: device startup failed")

	// ErrNotStarted is returned by ResubscribeMQTT before FirstRefresh.
	ErrNotStarted = errors.New("shared: device not started")
)
