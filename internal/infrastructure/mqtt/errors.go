package mqtt

import "errors"

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrNotConnected is returned by every broker operation while the
	// client is offline.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps a failed or timed out initial connect.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS is returned for QoS levels above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
