package entity

import (
	"context"
	"fmt"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// DDISnapshot is the serialisable state of a DALI/DMX channel.
type DDISnapshot struct {
	Index            int   `json:"index"`
	On               *bool `json:"on,omitempty"`
	Brightness       *int  `json:"brightness,omitempty"`
	ColorTemperature *int  `json:"color_temperature,omitempty"`
}

// DDI is one channel of the DALI/DMX extension. Brightness uses the 0-255
// scale and the colour temperature kelvin.
type DDI struct {
	base
	cmd Commander

	on        *bool
	level     *int // percent, as the device reports it
	colorTemp *int
}

// NewDDI creates the view of DDI channel index.
func NewDDI(cmd Commander, index int) *DDI {
	return &DDI{base: base{index: index}, cmd: cmd}
}

func (d *DDI) Kind() string { return KindDDI }

// ApplyState takes the matching ddi_channels entry.
func (d *DDI) ApplyState(s *dingz.State) {
	if s == nil || d.index >= len(s.DDIChannels) {
		return
	}
	ch := s.DDIChannels[d.index]

	d.mu.Lock()
	defer d.mu.Unlock()
	if ch.On != nil {
		d.on = copyBool(ch.On)
	}
	if ch.Brightness != nil {
		d.level = copyInt(ch.Brightness)
	}
	if ch.ColorTemperature != nil {
		d.colorTemp = copyInt(ch.ColorTemperature)
	}
}

// HandleNotification is a no-op; DDI channels have no push messages.
func (d *DDI) HandleNotification(notify.Notification) {}

// IsOn returns the switching state; ok is false while unknown.
func (d *DDI) IsOn() (on, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.on == nil {
		return false, false
	}
	return *d.on, true
}

func (d *DDI) Snapshot() any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := DDISnapshot{
		Index:            d.index,
		On:               copyBool(d.on),
		ColorTemperature: copyInt(d.colorTemp),
	}
	if d.level != nil {
		b := brightnessFromPercent(*d.level)
		snap.Brightness = &b
	}
	return snap
}

// TurnOn switches the channel on. brightness (0-255), kelvin and ramp
// (seconds) are optional.
func (d *DDI) TurnOn(ctx context.Context, brightness, kelvin, ramp *int) error {
	cmd := dingz.DDIChannelCommand{Action: dingz.DimmerOn, ColorTemperature: kelvin, Time: ramp}
	if brightness != nil {
		if *brightness < 0 || *brightness > 255 {
			return fmt.Errorf("%w: brightness %d out of range", dingz.ErrInvalidArgument, *brightness)
		}
		v := percentFromBrightness(*brightness)
		cmd.Brightness = &v
	}
	return d.Switch(ctx, cmd)
}

// TurnOff switches the channel off.
func (d *DDI) TurnOff(ctx context.Context, ramp *int) error {
	return d.Switch(ctx, dingz.DDIChannelCommand{Action: dingz.DimmerOff, Time: ramp})
}

// Switch sends cmd with a percent brightness as the device takes it. The
// device ignores a colour temperature sent without brightness, so the
// current level is filled in.
func (d *DDI) Switch(ctx context.Context, cmd dingz.DDIChannelCommand) error {
	if cmd.Action == dingz.DimmerOn && cmd.Brightness == nil && cmd.ColorTemperature != nil {
		d.mu.RLock()
		cmd.Brightness = copyInt(d.level)
		d.mu.RUnlock()
	}
	if err := d.cmd.Client().SetDDIChannel(ctx, d.index, cmd); err != nil {
		return err
	}
	settle(ctx, d.cmd)
	return nil
}
