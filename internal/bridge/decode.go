package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/dingz-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// decoder converts one message of a category into a notification.
type decoder func(topic string, payload []byte) (notify.Notification, error)

// decoders maps each category to its decoder.
var decoders = map[string]decoder{
	CategoryOnline: decodeOnline,
	CategoryPIR:    decodePIR,
	CategoryButton: decodeButton,
	CategoryMotor:  decodeMotor,
	CategorySensor: decodeSensor,
	CategoryLight:  decodeLight,
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

// componentIndex parses the trailing topic segment as an index.
func componentIndex(topic string) (int, error) {
	seg := mqtt.LastSegment(topic)
	idx, err := strconv.Atoi(seg)
	if err != nil || idx < 0 {
		return 0, malformed("component index %q in topic %s", seg, topic)
	}
	return idx, nil
}

func decodeOnline(_ string, payload []byte) (notify.Notification, error) {
	online, err := strconv.ParseBool(strings.TrimSpace(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return notify.MQTTOnline{Online: online}, nil
}

func decodePIR(topic string, payload []byte) (notify.Notification, error) {
	idx, err := componentIndex(topic)
	if err != nil {
		return nil, err
	}
	ev := notify.PIREventType(strings.TrimSpace(string(payload)))
	if !ev.Valid() {
		return nil, malformed("unknown pir event %q", ev)
	}
	return notify.PIREvent{Index: idx, Event: ev}, nil
}

func decodeButton(topic string, payload []byte) (notify.Notification, error) {
	idx, err := componentIndex(topic)
	if err != nil {
		return nil, err
	}
	ev := notify.ButtonEventType(strings.TrimSpace(string(payload)))
	if !ev.Valid() {
		return nil, malformed("unknown button event %q", ev)
	}
	return notify.ButtonEvent{Index: idx, Event: ev}, nil
}

// motorPayload mirrors the motor JSON with every field optional so that
// missing required fields can be told apart from zero values.
type motorPayload struct {
	Position *int `json:"position"`
	Goal     *int `json:"goal"`
	Lamella  *int `json:"lamella"`
	Motion   *int `json:"motion"`
}

func decodeMotor(topic string, payload []byte) (notify.Notification, error) {
	idx, err := componentIndex(topic)
	if err != nil {
		return nil, err
	}

	var p motorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	var missing []string
	if p.Position == nil {
		missing = append(missing, "position")
	}
	if p.Lamella == nil {
		missing = append(missing, "lamella")
	}
	if p.Motion == nil {
		missing = append(missing, "motion")
	}
	if len(missing) > 0 {
		return nil, malformed("motor payload missing %s", strings.Join(missing, ", "))
	}

	motion := notify.MotorMotion(*p.Motion)
	if !motion.Valid() {
		return nil, malformed("motor motion %d out of range", *p.Motion)
	}

	return notify.MotorState{
		Index:    idx,
		Position: *p.Position,
		Goal:     p.Goal,
		Lamella:  *p.Lamella,
		Motion:   motion,
	}, nil
}

func decodeSensor(topic string, payload []byte) (notify.Notification, error) {
	kind := notify.SensorKind(mqtt.LastSegment(topic))
	switch kind {
	case notify.SensorLight, notify.SensorTemperature:
	default:
		return nil, malformed("unknown sensor %q", kind)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return notify.SensorState{Sensor: kind, Value: v}, nil
}

type lightPayload struct {
	Turn       *string `json:"turn"`
	Brightness *int    `json:"brightness"`
}

func decodeLight(topic string, payload []byte) (notify.Notification, error) {
	idx, err := componentIndex(topic)
	if err != nil {
		return nil, err
	}

	var p lightPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if p.Turn == nil || p.Brightness == nil {
		return nil, malformed("light payload needs turn and brightness")
	}

	turn := notify.LightTurn(*p.Turn)
	if turn != notify.LightOn && turn != notify.LightOff {
		return nil, malformed("unknown light turn %q", turn)
	}

	return notify.LightState{Index: idx, Turn: turn, Brightness: *p.Brightness}, nil
}
