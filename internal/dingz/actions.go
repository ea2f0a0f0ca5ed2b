package dingz

import (
	"context"
	"fmt"
	"math"
)

// DimmerAction is the verb of a dimmer command.
type DimmerAction string

// Dimmer actions.
const (
	DimmerOn     DimmerAction = "on"
	DimmerOff    DimmerAction = "off"
	DimmerToggle DimmerAction = "toggle"
)

// ShadeAction is the verb of a blind command.
type ShadeAction string

// Shade actions.
const (
	ShadeUp   ShadeAction = "up"
	ShadeDown ShadeAction = "down"
	ShadeStop ShadeAction = "stop"
)

// ThermostatMode is the operating mode of the built-in thermostat.
type ThermostatMode string

// Thermostat modes.
const (
	ThermostatOff     ThermostatMode = "off"
	ThermostatHeating ThermostatMode = "heating"
	ThermostatCooling ThermostatMode = "cooling"
)

// Limits of the commands that carry a range.
const (
	MinTempOffset       = -30.0
	MaxTempOffset       = 30.0
	MinColorTemperature = 2700
	MaxColorTemperature = 6500
)

// DimmerOptions are the optional arguments of SetDimmer.
type DimmerOptions struct {
	// Value is the brightness in percent (0-100).
	Value *int
	// Ramp is the transition time in seconds.
	Ramp *int
}

// LEDCommand sets the front LED.
type LEDCommand struct {
	Action DimmerAction
	// Color is "h;s;v" in hsv mode or "RRGGBB" in rgb mode.
	Color string
	Mode  string
	// Ramp is the transition time in milliseconds.
	Ramp *int
}

// DDIChannelCommand controls one channel of the DALI/DMX extension.
type DDIChannelCommand struct {
	Action           DimmerAction
	Brightness       *int
	ColorTemperature *int
	Time             *int
}

// SetDimmer switches or dims the dimmer at index.
func (c *Client) SetDimmer(ctx context.Context, index int, action DimmerAction, opts DimmerOptions) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if opts.Value != nil && (*opts.Value < 0 || *opts.Value > 100) {
		return fmt.Errorf("%w: dimmer value %d out of range", ErrInvalidArgument, *opts.Value)
	}
	return c.PostQuery(ctx, fmt.Sprintf("/api/v1/dimmer/%d/%s", index, action), Params{
		"value": opts.Value,
		"ramp":  opts.Ramp,
	})
}

// SetShade moves the blind at index up or down, or stops it.
func (c *Client) SetShade(ctx context.Context, index int, action ShadeAction) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	return c.PostQuery(ctx, fmt.Sprintf("/api/v1/shade/%d/%s", index, action), nil)
}

// SetShadePosition moves the blind and/or tilts the lamella. Either value
// may be nil to keep the current one.
func (c *Client) SetShadePosition(ctx context.Context, index int, blind, lamella *int) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	for _, v := range []*int{blind, lamella} {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("%w: shade position %d out of range", ErrInvalidArgument, *v)
		}
	}
	return c.PostQuery(ctx, fmt.Sprintf("/api/v1/shade/%d", index), Params{
		"blind":   blind,
		"lamella": lamella,
	})
}

// SetLED sets the front LED. The body is sent without percent-encoding
// because the device's form decoder rejects an encoded ';' in colours.
func (c *Client) SetLED(ctx context.Context, cmd LEDCommand) error {
	p := Params{"action": string(cmd.Action), "ramp": cmd.Ramp}
	if cmd.Color != "" {
		p["color"] = cmd.Color
	}
	if cmd.Mode != "" {
		p["mode"] = cmd.Mode
	}
	return c.PostRaw(ctx, pathLEDSet, rawBody(p))
}

// SetDDIChannel controls one channel of the DALI/DMX extension.
// Brightness is in percent and the colour temperature in kelvin.
func (c *Client) SetDDIChannel(ctx context.Context, index int, cmd DDIChannelCommand) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	if cmd.Action != DimmerOn && cmd.Action != DimmerOff {
		return fmt.Errorf("%w: ddi action %q", ErrInvalidArgument, cmd.Action)
	}
	if b := cmd.Brightness; b != nil && (*b < 0 || *b > 100) {
		return fmt.Errorf("%w: ddi brightness %d out of range", ErrInvalidArgument, *b)
	}
	if ct := cmd.ColorTemperature; ct != nil && (*ct < MinColorTemperature || *ct > MaxColorTemperature) {
		return fmt.Errorf("%w: color temperature %d out of range", ErrInvalidArgument, *ct)
	}
	return c.PostQuery(ctx, fmt.Sprintf("/api/v1/ddi/%d/%s", index, cmd.Action), Params{
		"brightness":        cmd.Brightness,
		"color_temperature": cmd.ColorTemperature,
		"time":              cmd.Time,
	})
}

// UpdateThermostatConfig applies a partial thermostat configuration.
func (c *Client) UpdateThermostatConfig(ctx context.Context, update ThermostatConfigUpdate) error {
	return c.PostJSON(ctx, pathThermostat, update)
}

// UpdateSystemConfig applies a partial system configuration.
func (c *Client) UpdateSystemConfig(ctx context.Context, update SystemConfigUpdate) error {
	return c.PostJSON(ctx, pathSystemConfig, update)
}

// SetThermostatMode switches the thermostat off or into heating or
// cooling. Free cooling follows the enable flag.
func (c *Client) SetThermostatMode(ctx context.Context, mode ThermostatMode) error {
	var enable, cooling bool
	switch mode {
	case ThermostatOff:
	case ThermostatHeating:
		enable = true
	case ThermostatCooling:
		enable, cooling = true, true
	default:
		return fmt.Errorf("%w: thermostat mode %q", ErrInvalidArgument, mode)
	}
	return c.UpdateThermostatConfig(ctx, ThermostatConfigUpdate{
		Enable:      &enable,
		FreeCooling: &enable,
		Cooling:     &cooling,
	})
}

// SetTargetTemperature sets the thermostat set point in degrees Celsius.
func (c *Client) SetTargetTemperature(ctx context.Context, celsius float64) error {
	if math.IsNaN(celsius) || math.IsInf(celsius, 0) {
		return fmt.Errorf("%w: target temperature %v", ErrInvalidArgument, celsius)
	}
	return c.UpdateThermostatConfig(ctx, ThermostatConfigUpdate{TargetTemp: &celsius})
}

// SetTempOffset sets the room temperature calibration offset. The value
// must lie in [MinTempOffset, MaxTempOffset] and is rounded to 0.1.
func (c *Client) SetTempOffset(ctx context.Context, offset float64) error {
	if math.IsNaN(offset) || offset < MinTempOffset || offset > MaxTempOffset {
		return fmt.Errorf("%w: temperature offset %v out of range", ErrInvalidArgument, offset)
	}
	offset = math.Round(offset*10) / 10
	return c.UpdateSystemConfig(ctx, SystemConfigUpdate{TempOffset: &offset})
}

// UpdateMQTTServiceConfig replaces the MQTT service configuration.
func (c *Client) UpdateMQTTServiceConfig(ctx context.Context, cfg ServicesConfigMQTT) error {
	return c.PostJSON(ctx, pathServicesConfig, ServicesConfig{MQTT: &cfg})
}

// ResetPIRTime restarts the light-off timer of the motion sensor at index.
func (c *Client) ResetPIRTime(ctx context.Context, index int) error {
	if err := checkIndex(index); err != nil {
		return err
	}
	return c.PostQuery(ctx, fmt.Sprintf("/api/v1/pir/%d/reset_time", index), nil)
}

// SaveDefaultConfig stores the current configuration as the device default.
func (c *Client) SaveDefaultConfig(ctx context.Context) error {
	return c.PostQuery(ctx, pathSaveDefault, nil)
}

// Reboot restarts the device.
func (c *Client) Reboot(ctx context.Context) error {
	return c.PostQuery(ctx, pathReboot, nil)
}

func checkIndex(index int) error {
	if index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidArgument, index)
	}
	return nil
}
