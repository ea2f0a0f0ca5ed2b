package entity

import (
	"context"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// SensorSnapshot is the serialisable state of a scalar sensor.
type SensorSnapshot struct {
	Sensor string   `json:"sensor"`
	Value  *float64 `json:"value,omitempty"`
	Unit   string   `json:"unit"`
}

// Sensor is the room temperature or brightness sensor.
type Sensor struct {
	base
	sensor notify.SensorKind
	value  *float64
}

// NewSensor creates the view of one scalar sensor.
func NewSensor(kind notify.SensorKind) *Sensor {
	idx := 0
	if kind == notify.SensorLight {
		idx = 1
	}
	return &Sensor{base: base{index: idx, name: string(kind)}, sensor: kind}
}

func (s *Sensor) Kind() string { return KindSensor }

// SensorKind returns which sensor this is.
func (s *Sensor) SensorKind() notify.SensorKind { return s.sensor }

// Unit returns the unit of the value.
func (s *Sensor) Unit() string {
	if s.sensor == notify.SensorTemperature {
		return "°C"
	}
	return "lx"
}

// ApplyState takes room_temperature or brightness from the state.
func (s *Sensor) ApplyState(st *dingz.State) {
	if st == nil || st.Sensors == nil {
		return
	}

	var v *float64
	switch s.sensor {
	case notify.SensorTemperature:
		v = copyFloat(st.Sensors.RoomTemperature)
	case notify.SensorLight:
		if st.Sensors.Brightness != nil {
			f := float64(*st.Sensors.Brightness)
			v = &f
		}
	}
	if v == nil {
		return
	}

	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

// HandleNotification applies a SensorState of the same sensor.
func (s *Sensor) HandleNotification(n notify.Notification) {
	ss, ok := n.(notify.SensorState)
	if !ok || ss.Sensor != s.sensor {
		return
	}

	s.mu.Lock()
	v := ss.Value
	s.value = &v
	s.mu.Unlock()
}

// Value returns the reading; ok is false while unknown.
func (s *Sensor) Value() (v float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.value == nil {
		return 0, false
	}
	return *s.value, true
}

func (s *Sensor) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SensorSnapshot{Sensor: string(s.sensor), Value: copyFloat(s.value), Unit: s.Unit()}
}

// LEDSnapshot is the serialisable state of the front LED.
type LEDSnapshot struct {
	On   *bool  `json:"on,omitempty"`
	HSV  string `json:"hsv,omitempty"`
	RGB  string `json:"rgb,omitempty"`
	Mode string `json:"mode,omitempty"`
}

// FrontLED is the RGB LED on the front plate.
type FrontLED struct {
	base
	cmd Commander

	on   *bool
	hsv  string
	rgb  string
	mode string
}

// NewFrontLED creates the LED view.
func NewFrontLED(cmd Commander) *FrontLED {
	return &FrontLED{base: base{name: "front_led"}, cmd: cmd}
}

func (l *FrontLED) Kind() string { return KindLED }

// ApplyState takes the led block of the state.
func (l *FrontLED) ApplyState(s *dingz.State) {
	if s == nil || s.LED == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s.LED.On != nil {
		l.on = copyBool(s.LED.On)
	}
	if s.LED.HSV != nil {
		l.hsv = *s.LED.HSV
	}
	if s.LED.RGB != nil {
		l.rgb = *s.LED.RGB
	}
	if s.LED.Mode != nil {
		l.mode = *s.LED.Mode
	}
}

// HandleNotification is a no-op; the LED has no push messages.
func (l *FrontLED) HandleNotification(notify.Notification) {}

func (l *FrontLED) Snapshot() any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return LEDSnapshot{On: copyBool(l.on), HSV: l.hsv, RGB: l.rgb, Mode: l.mode}
}

// SetColor turns the LED on with an "h;s;v" colour.
func (l *FrontLED) SetColor(ctx context.Context, hsv string, ramp *int) error {
	return l.Set(ctx, dingz.LEDCommand{Action: dingz.DimmerOn, Color: hsv, Mode: "hsv", Ramp: ramp})
}

// TurnOff switches the LED off.
func (l *FrontLED) TurnOff(ctx context.Context) error {
	return l.Set(ctx, dingz.LEDCommand{Action: dingz.DimmerOff})
}

// Set sends cmd unchanged, for callers holding an rgb colour or a toggle.
func (l *FrontLED) Set(ctx context.Context, cmd dingz.LEDCommand) error {
	if err := l.cmd.Client().SetLED(ctx, cmd); err != nil {
		return err
	}
	settle(ctx, l.cmd)
	return nil
}
