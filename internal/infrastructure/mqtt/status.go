package mqtt

import (
	"encoding/json"
	"time"
)

// Availability values of a Status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Reasons attached to an offline Status.
const (
	ReasonUnexpected = "unexpected_disconnect"
	ReasonShutdown   = "graceful_shutdown"
)

// Status is the retained availability message published on
// dingz-bridge/status for the service and on
// dingz-bridge/devices/{name}/status for each configured device.
type Status struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
	MAC       string `json:"mac,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewStatus returns a Status stamped with the current UTC time.
func NewStatus(status string) Status {
	return Status{Status: status, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Payload encodes s as JSON.
func (s Status) Payload() []byte {
	// A struct of strings always encodes.
	b, _ := json.Marshal(s) //nolint:errcheck // Cannot fail for this type
	return b
}

// PublishStatus publishes s retained on topic with the configured QoS.
func (c *Client) PublishStatus(topic string, s Status) error {
	return c.PublishRetained(topic, s.Payload())
}

func serviceStatus(status, clientID, reason string) Status {
	s := NewStatus(status)
	s.ClientID = clientID
	s.Reason = reason
	return s
}
