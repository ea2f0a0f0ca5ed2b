package entity

import (
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// outputTypeLight is the output_config type of a dimmer output.
const outputTypeLight = "light"

// Discover builds the views of dev from its current config and state
// snapshots:
//   - the front LED
//   - a Dimmer for every active output of type light
//   - a Cover for every blind in the state not disabled in blind_config
//   - a Motion for every enabled PIR, unless pir_config disables it
//   - a Button for every active button
//   - temperature and brightness sensors when the state has them
//   - a Thermostat while the state reports it active
//   - a DDI per state channel on devices with a DALI/DMX base
//
// Views are returned unbound; see Bind.
func Discover(dev Device) []View {
	cfg := dev.Config().Data()
	state := dev.State().Data()

	views := []View{NewFrontLED(dev)}

	if cfg != nil {
		for i, out := range cfg.Outputs {
			if !out.IsActive(outputTypeLight) {
				continue
			}
			dimmable := out.Light != nil && out.Light.Dimmable != nil && *out.Light.Dimmable
			name := deref(out.Name)
			if name == "" {
				name = cfg.DimmerName(i)
			}
			views = append(views, NewDimmer(dev, i, name, dimmable))
		}
	}

	if state != nil {
		for i := range state.Blinds {
			if cfg.BlindActive(i) {
				views = append(views, NewCover(dev, i, cfg.BlindName(i)))
			}
		}

		var onTime *int
		pirOff := false
		if cfg != nil && cfg.PIR != nil {
			onTime = cfg.PIR.OnTime
			pirOff = cfg.PIR.Enabled != nil && !*cfg.PIR.Enabled
		}
		for i, pir := range state.Sensors.PIRs() {
			if !pirOff && pir != nil && pir.Enabled != nil && *pir.Enabled {
				views = append(views, NewMotion(dev, i, onTime))
			}
		}
	}

	if cfg != nil {
		for i, btn := range cfg.Buttons {
			if btn.Active != nil && *btn.Active {
				views = append(views, NewButton(i, deref(btn.Name)))
			}
		}
	}

	if state != nil && state.Sensors != nil {
		if state.Sensors.RoomTemperature != nil {
			views = append(views, NewSensor(notify.SensorTemperature))
		}
		if state.Sensors.Brightness != nil {
			views = append(views, NewSensor(notify.SensorLight))
		}
	}

	if state != nil && state.Thermostat != nil && state.Thermostat.Active != nil && *state.Thermostat.Active {
		views = append(views, NewThermostat(dev))
	}

	if cfg != nil && cfg.Device.DDIBase != nil && *cfg.Device.DDIBase && state != nil {
		for i := range state.DDIChannels {
			views = append(views, NewDDI(dev, i))
		}
	}

	return views
}

// Find returns the view of kind at index.
func Find(views []View, kind string, index int) (View, bool) {
	for _, v := range views {
		if v.Kind() == kind && v.Index() == index {
			return v, true
		}
	}
	return nil, false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
