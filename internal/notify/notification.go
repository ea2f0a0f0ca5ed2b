package notify

import "fmt"

// Notification is a push event from a device. The concrete types below
// are the only implementations.
type Notification interface {
	// Kind returns a short stable name used in logs and persisted history.
	Kind() string
	isNotification()
}

// PIREventType is the event code of a motion sensor.
type PIREventType string

// Motion sensor events.
const (
	PIRMotionStart PIREventType = "s"
	PIRMotionStop  PIREventType = "ss"
	PIRNoMotion    PIREventType = "n"
)

// Valid reports whether t is a known event code.
func (t PIREventType) Valid() bool {
	switch t {
	case PIRMotionStart, PIRMotionStop, PIRNoMotion:
		return true
	}
	return false
}

// ButtonEventType is the event code of a button.
type ButtonEventType string

// Button events. M1 to M5 are multi-press counts.
const (
	ButtonPress   ButtonEventType = "p"
	ButtonRelease ButtonEventType = "r"
	ButtonHold    ButtonEventType = "h"
	ButtonM1      ButtonEventType = "m1"
	ButtonM2      ButtonEventType = "m2"
	ButtonM3      ButtonEventType = "m3"
	ButtonM4      ButtonEventType = "m4"
	ButtonM5      ButtonEventType = "m5"
)

// Valid reports whether t is a known event code.
func (t ButtonEventType) Valid() bool {
	switch t {
	case ButtonPress, ButtonRelease, ButtonHold, ButtonM1, ButtonM2, ButtonM3, ButtonM4, ButtonM5:
		return true
	}
	return false
}

// MotorMotion is the movement phase of a blind motor.
type MotorMotion int

// Motor phases as sent by the device.
const (
	MotorStopped MotorMotion = iota
	MotorOpening
	MotorClosing
	MotorCalibrating
)

// Valid reports whether m is a known phase.
func (m MotorMotion) Valid() bool {
	return m >= MotorStopped && m <= MotorCalibrating
}

// String returns the phase name.
func (m MotorMotion) String() string {
	switch m {
	case MotorStopped:
		return "stopped"
	case MotorOpening:
		return "opening"
	case MotorClosing:
		return "closing"
	case MotorCalibrating:
		return "calibrating"
	default:
		return fmt.Sprintf("motion(%d)", int(m))
	}
}

// SensorKind names a scalar sensor.
type SensorKind string

// Known scalar sensors.
const (
	SensorLight       SensorKind = "light"
	SensorTemperature SensorKind = "temperature"
)

// LightTurn is the switching state in a light notification.
type LightTurn string

// Light states.
const (
	LightOn  LightTurn = "on"
	LightOff LightTurn = "off"
)

// MQTTOnline reports the device's MQTT link state.
type MQTTOnline struct {
	Online bool `json:"online"`
}

// PIREvent is a motion sensor event.
type PIREvent struct {
	Index int          `json:"index"`
	Event PIREventType `json:"event"`
}

// ButtonEvent is a button event.
type ButtonEvent struct {
	Index int             `json:"index"`
	Event ButtonEventType `json:"event"`
}

// MotorState is the current position of a blind motor.
type MotorState struct {
	Index    int         `json:"index"`
	Position int         `json:"position"`
	Goal     *int        `json:"goal,omitempty"`
	Lamella  int         `json:"lamella"`
	Motion   MotorMotion `json:"motion"`
}

// SensorState is a scalar sensor reading.
type SensorState struct {
	Sensor SensorKind `json:"sensor"`
	Value  float64    `json:"value"`
}

// LightState is the switching state and brightness of a dimmer output.
type LightState struct {
	Index      int       `json:"index"`
	Turn       LightTurn `json:"turn"`
	Brightness int       `json:"brightness"`
}

func (MQTTOnline) Kind() string  { return "online" }
func (PIREvent) Kind() string    { return "pir" }
func (ButtonEvent) Kind() string { return "button" }
func (MotorState) Kind() string  { return "motor" }
func (SensorState) Kind() string { return "sensor" }
func (LightState) Kind() string  { return "light" }

func (MQTTOnline) isNotification()  {}
func (PIREvent) isNotification()    {}
func (ButtonEvent) isNotification() {}
func (MotorState) isNotification()  {}
func (SensorState) isNotification() {}
func (LightState) isNotification()  {}
