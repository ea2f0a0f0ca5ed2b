package entity

import (
	"context"
	"fmt"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// DimmerSnapshot is the serialisable state of a dimmer.
type DimmerSnapshot struct {
	Index      int    `json:"index"`
	Name       string `json:"name,omitempty"`
	Dimmable   bool   `json:"dimmable"`
	On         *bool  `json:"on,omitempty"`
	Brightness *int   `json:"brightness,omitempty"`
}

// Dimmer is one dimmer output. Brightness uses the 0-255 scale.
type Dimmer struct {
	base
	dimmable bool
	cmd      Commander

	on         *bool
	brightness *int
}

// NewDimmer creates the view of dimmer index.
func NewDimmer(cmd Commander, index int, name string, dimmable bool) *Dimmer {
	return &Dimmer{base: base{index: index, name: name}, dimmable: dimmable, cmd: cmd}
}

func (d *Dimmer) Kind() string { return KindDimmer }

// ApplyState takes on and output from the matching state dimmer.
func (d *Dimmer) ApplyState(s *dingz.State) {
	sd := s.Dimmer(d.index)
	if sd == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if sd.On != nil {
		on := *sd.On
		d.on = &on
	}
	if sd.Output != nil {
		b := brightnessFromPercent(*sd.Output)
		d.brightness = &b
	}
}

// HandleNotification applies a LightState for this index.
func (d *Dimmer) HandleNotification(n notify.Notification) {
	ls, ok := n.(notify.LightState)
	if !ok || ls.Index != d.index {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	on := ls.Turn == notify.LightOn
	b := brightnessFromPercent(ls.Brightness)
	d.on = &on
	d.brightness = &b
}

// IsOn returns the switching state; ok is false while unknown.
func (d *Dimmer) IsOn() (on, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.on == nil {
		return false, false
	}
	return *d.on, true
}

// Brightness returns the brightness on the 0-255 scale; ok is false while
// unknown.
func (d *Dimmer) Brightness() (brightness int, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.brightness == nil {
		return 0, false
	}
	return *d.brightness, true
}

func (d *Dimmer) Snapshot() any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return DimmerSnapshot{
		Index:      d.index,
		Name:       d.name,
		Dimmable:   d.dimmable,
		On:         copyBool(d.on),
		Brightness: copyInt(d.brightness),
	}
}

// TurnOn switches the dimmer on. brightness (0-255) and ramp (seconds) are
// optional.
func (d *Dimmer) TurnOn(ctx context.Context, brightness, ramp *int) error {
	opts := dingz.DimmerOptions{Ramp: ramp}
	if brightness != nil {
		if *brightness < 0 || *brightness > 255 {
			return fmt.Errorf("%w: brightness %d out of range", dingz.ErrInvalidArgument, *brightness)
		}
		v := percentFromBrightness(*brightness)
		opts.Value = &v
	}
	return d.Switch(ctx, dingz.DimmerOn, opts)
}

// TurnOff switches the dimmer off.
func (d *Dimmer) TurnOff(ctx context.Context, ramp *int) error {
	return d.Switch(ctx, dingz.DimmerOff, dingz.DimmerOptions{Ramp: ramp})
}

// Switch sends action with a percent value as the device takes it.
func (d *Dimmer) Switch(ctx context.Context, action dingz.DimmerAction, opts dingz.DimmerOptions) error {
	if err := d.cmd.Client().SetDimmer(ctx, d.index, action, opts); err != nil {
		return err
	}
	settle(ctx, d.cmd)
	return nil
}

func copyBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
