package entity

import (
	"context"
	"fmt"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// Set point limits used when the state does not report its own.
const (
	defaultMinTargetTemp = -55.0
	defaultMaxTargetTemp = 120.0
)

// ThermostatSnapshot is the serialisable state of the thermostat.
type ThermostatSnapshot struct {
	Mode              string   `json:"mode,omitempty"`
	Heating           *bool    `json:"heating,omitempty"`
	Output            *int     `json:"output,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TargetTemperature *float64 `json:"target_temperature,omitempty"`
	MinTemperature    float64  `json:"min_temperature"`
	MaxTemperature    float64  `json:"max_temperature"`
}

// Thermostat is the built-in room thermostat. It only exists while the
// state reports it active.
type Thermostat struct {
	base
	cmd Commander

	enabled   *bool
	on        *bool
	mode      string
	out       *int
	temp      *float64
	target    *float64
	minTarget float64
	maxTarget float64
}

// NewThermostat creates the thermostat view.
func NewThermostat(cmd Commander) *Thermostat {
	return &Thermostat{
		base:      base{name: "thermostat"},
		cmd:       cmd,
		minTarget: defaultMinTargetTemp,
		maxTarget: defaultMaxTargetTemp,
	}
}

func (t *Thermostat) Kind() string { return KindThermostat }

// ApplyState takes the thermostat block of the state.
func (t *Thermostat) ApplyState(s *dingz.State) {
	if s == nil || s.Thermostat == nil {
		return
	}
	st := s.Thermostat

	t.mu.Lock()
	defer t.mu.Unlock()
	if st.Enabled != nil {
		t.enabled = copyBool(st.Enabled)
	}
	if st.On != nil {
		t.on = copyBool(st.On)
	}
	if st.Mode != nil {
		t.mode = *st.Mode
	}
	if st.Out != nil {
		t.out = copyInt(st.Out)
	}
	if st.Temp != nil {
		t.temp = copyFloat(st.Temp)
	}
	if st.TargetTemp != nil {
		t.target = copyFloat(st.TargetTemp)
	}
	if st.MinTargetTemp != nil {
		t.minTarget = *st.MinTargetTemp
	}
	if st.MaxTargetTemp != nil {
		t.maxTarget = *st.MaxTargetTemp
	}
}

// HandleNotification is a no-op; the thermostat has no push messages.
func (t *Thermostat) HandleNotification(notify.Notification) {}

// Mode returns off while the thermostat is disabled, otherwise heating or
// cooling. ok is false while unknown.
func (t *Thermostat) Mode() (mode dingz.ThermostatMode, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.modeLocked()
}

func (t *Thermostat) modeLocked() (dingz.ThermostatMode, bool) {
	if t.enabled == nil {
		return "", false
	}
	switch {
	case !*t.enabled:
		return dingz.ThermostatOff, true
	case t.mode == string(dingz.ThermostatCooling):
		return dingz.ThermostatCooling, true
	default:
		return dingz.ThermostatHeating, true
	}
}

// TargetTemperature returns the set point; ok is false while unknown.
func (t *Thermostat) TargetTemperature() (celsius float64, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.target == nil {
		return 0, false
	}
	return *t.target, true
}

func (t *Thermostat) Snapshot() any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mode, _ := t.modeLocked()
	return ThermostatSnapshot{
		Mode:              string(mode),
		Heating:           copyBool(t.on),
		Output:            copyInt(t.out),
		Temperature:       copyFloat(t.temp),
		TargetTemperature: copyFloat(t.target),
		MinTemperature:    t.minTarget,
		MaxTemperature:    t.maxTarget,
	}
}

// SetTargetTemperature changes the set point. It must lie within the
// limits reported by the device.
func (t *Thermostat) SetTargetTemperature(ctx context.Context, celsius float64) error {
	t.mu.RLock()
	lo, hi := t.minTarget, t.maxTarget
	t.mu.RUnlock()
	if celsius < lo || celsius > hi {
		return fmt.Errorf("%w: target temperature %v outside [%v, %v]", dingz.ErrInvalidArgument, celsius, lo, hi)
	}

	if err := t.cmd.Client().SetTargetTemperature(ctx, celsius); err != nil {
		return err
	}
	settle(ctx, t.cmd)
	return nil
}

// SetMode switches the thermostat off or into heating or cooling.
func (t *Thermostat) SetMode(ctx context.Context, mode dingz.ThermostatMode) error {
	if err := t.cmd.Client().SetThermostatMode(ctx, mode); err != nil {
		return err
	}
	settle(ctx, t.cmd)
	return nil
}
