package mqtt

import (
	"fmt"
	"strings"
)

// Topic roots.
//
// Devices publish under dingz/{id}/... once their MQTT service is enabled.
// The bridge announces its own availability under dingz-bridge/.
const (
	// TopicPrefixDevice is the root of every topic a dingz publishes.
	TopicPrefixDevice = "dingz"

	// TopicPrefixService is the root for topics owned by this service.
	TopicPrefixService = "dingz-bridge"
)

// Topics provides builders for dingz MQTT topics.
// Using these helpers keeps subscription patterns consistent:
//
//	topics := mqtt.Topics{}
//	topics.DevicePIR("ABCDEFA81XYZ")
//	// Returns: "dingz/ABCDEFA81XYZ/+/event/pir/+"
type Topics struct{}

// =============================================================================
// Device Topics
// =============================================================================

// DeviceOnline returns the link state topic of a device.
//
// Example: dingz/ABCDEFA81XYZ/online
func (Topics) DeviceOnline(deviceID string) string {
	return fmt.Sprintf("%s/%s/online", TopicPrefixDevice, deviceID)
}

// DevicePIR returns the pattern for motion sensor events.
//
// Example: dingz/ABCDEFA81XYZ/+/event/pir/+
func (Topics) DevicePIR(deviceID string) string {
	return fmt.Sprintf("%s/%s/+/event/pir/+", TopicPrefixDevice, deviceID)
}

// DeviceButton returns the pattern for button events.
//
// Example: dingz/ABCDEFA81XYZ/+/event/button/+
func (Topics) DeviceButton(deviceID string) string {
	return fmt.Sprintf("%s/%s/+/event/button/+", TopicPrefixDevice, deviceID)
}

// DeviceMotor returns the pattern for blind motor state.
//
// Example: dingz/ABCDEFA81XYZ/+/state/motor/+
func (Topics) DeviceMotor(deviceID string) string {
	return fmt.Sprintf("%s/%s/+/state/motor/+", TopicPrefixDevice, deviceID)
}

// DeviceLight returns the pattern for dimmer output state.
//
// Example: dingz/ABCDEFA81XYZ/+/state/light/+
func (Topics) DeviceLight(deviceID string) string {
	return fmt.Sprintf("%s/%s/+/state/light/+", TopicPrefixDevice, deviceID)
}

// DeviceSensor returns the pattern for scalar sensor readings.
//
// Example: dingz/ABCDEFA81XYZ/+/sensor/+
func (Topics) DeviceSensor(deviceID string) string {
	return fmt.Sprintf("%s/%s/+/sensor/+", TopicPrefixDevice, deviceID)
}

// =============================================================================
// Service Topics
// =============================================================================

// ServiceStatus returns the retained availability topic of this service.
//
// Example: dingz-bridge/status
func (Topics) ServiceStatus() string {
	return TopicPrefixService + "/status"
}

// ServiceDevice returns the retained availability topic the bridge keeps for
// one configured device.
//
// Example: dingz-bridge/devices/hallway/status
func (Topics) ServiceDevice(name string) string {
	return fmt.Sprintf("%s/devices/%s/status", TopicPrefixService, name)
}

// =============================================================================
// Topic Parsing
// =============================================================================

// LastSegment returns the part of topic after the final '/'.
func LastSegment(topic string) string {
	i := strings.LastIndexByte(topic, '/')
	return topic[i+1:]
}
