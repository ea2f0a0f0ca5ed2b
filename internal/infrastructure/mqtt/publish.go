package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outgoing payloads at 1MB, well above anything the
// bridge publishes.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to acknowledge
// it (for QoS > 0) or for the write to complete.
//
// Parameters:
//   - topic: Concrete topic, no wildcards
//   - payload: Message body, at most 1MB
//   - qos: 0, 1 or 2
//   - retained: Whether the broker keeps the message for new subscribers
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected or a wrapped
//     ErrPublishFailed
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := wait(c.client.Publish(topic, qos, retained, payload)); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishRetained publishes a retained message with the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
