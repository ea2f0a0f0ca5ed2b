package influxdb

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	// ErrNotConnected is returned after Close.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed wraps a failed initial ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	errUnhealthy = errors.New("server not healthy")
)
