package dingz

// Index locates a component among all components of its kind.
type Index struct {
	Relative *int `json:"relative,omitempty"`
	Absolute *int `json:"absolute,omitempty"`
}

// StateDimmer is one dimmer channel in the state payload.
type StateDimmer struct {
	On       *bool  `json:"on,omitempty"`
	Output   *int   `json:"output,omitempty"`
	Ramp     *int   `json:"ramp,omitempty"`
	Readonly *bool  `json:"readonly,omitempty"`
	Index    *Index `json:"index,omitempty"`
}

// StateBlind is one motor channel in the state payload.
type StateBlind struct {
	Moving   *string `json:"moving,omitempty"`
	Position *int    `json:"position,omitempty"`
	Lamella  *int    `json:"lamella,omitempty"`
	Readonly *bool   `json:"readonly,omitempty"`
	Index    *Index  `json:"index,omitempty"`
}

// StateLED is the front LED.
type StateLED struct {
	On   *bool   `json:"on,omitempty"`
	HSV  *string `json:"hsv,omitempty"`
	RGB  *string `json:"rgb,omitempty"`
	Mode *string `json:"mode,omitempty"`
	Ramp *int    `json:"ramp,omitempty"`
}

// SensorPIR is one motion sensor.
type SensorPIR struct {
	Enabled       *bool   `json:"enabled,omitempty"`
	Motion        *bool   `json:"motion,omitempty"`
	Mode          *string `json:"mode,omitempty"`
	LightOffTimer *int    `json:"light_off_timer,omitempty"`
	SuspendTimer  *int    `json:"suspend_timer,omitempty"`
}

// SensorPowerOutput is the measured power of one output.
type SensorPowerOutput struct {
	Value *float64 `json:"value,omitempty"`
}

// PIRShape identifies how the firmware reported its motion sensors.
type PIRShape int

const (
	// PIRShapeNone means the payload carried no motion sensor data.
	PIRShapeNone PIRShape = iota

	// PIRShapeV1 is the older single-sensor shape with person_present,
	// light_off_timer and suspend_timer directly inside sensors.
	PIRShapeV1

	// PIRShapeV2 is the list shape under sensors.pirs. Entries are null
	// for sensor slots without hardware.
	PIRShapeV2
)

// String returns the shape name.
func (s PIRShape) String() string {
	switch s {
	case PIRShapeV1:
		return "v1"
	case PIRShapeV2:
		return "v2"
	default:
		return "none"
	}
}

// StateSensors holds the sensor block of the state payload.
type StateSensors struct {
	Brightness               *int                `json:"brightness,omitempty"`
	LightState               *string             `json:"light_state,omitempty"`
	LightStateLPF            *string             `json:"light_state_lpf,omitempty"`
	RoomTemperature          *float64            `json:"room_temperature,omitempty"`
	UncompensatedTemperature *float64            `json:"uncompensated_temperature,omitempty"`
	TempOffset               *float64            `json:"temp_offset,omitempty"`
	CPUTemperature           *float64            `json:"cpu_temperature,omitempty"`
	PuckTemperature          *float64            `json:"puck_temperature,omitempty"`
	FETTemperature           *float64            `json:"fet_temperature,omitempty"`
	InputState               *bool               `json:"input_state,omitempty"`
	PowerOutputs             []SensorPowerOutput `json:"power_outputs,omitempty"`

	// v2 motion sensors.
	PIRList []*SensorPIR `json:"pirs,omitempty"`

	// v1 motion sensor.
	PersonPresent *int `json:"person_present,omitempty"`
	LightOffTimer *int `json:"light_off_timer,omitempty"`
	SuspendTimer  *int `json:"suspend_timer,omitempty"`
}

// PIRShape reports which motion sensor layout the payload used.
func (s *StateSensors) PIRShape() PIRShape {
	switch {
	case s == nil:
		return PIRShapeNone
	case s.PIRList != nil:
		return PIRShapeV2
	case s.PersonPresent != nil:
		return PIRShapeV1
	default:
		return PIRShapeNone
	}
}

// PIRs returns the motion sensors in the v2 list layout regardless of the
// layout the firmware used. Slots without a sensor are nil.
func (s *StateSensors) PIRs() []*SensorPIR {
	switch s.PIRShape() {
	case PIRShapeV2:
		return s.PIRList
	case PIRShapeV1:
		motion := *s.PersonPresent != 0
		enabled := true
		return []*SensorPIR{{
			Enabled:       &enabled,
			Motion:        &motion,
			LightOffTimer: s.LightOffTimer,
			SuspendTimer:  s.SuspendTimer,
		}}
	default:
		return nil
	}
}

// StateDynLight is the dynamic light mode.
type StateDynLight struct {
	Mode *string `json:"mode,omitempty"`
}

// StateThermostat is the built-in thermostat.
type StateThermostat struct {
	Active        *bool    `json:"active,omitempty"`
	On            *bool    `json:"on,omitempty"`
	Out           *int     `json:"out,omitempty"`
	State         *string  `json:"state,omitempty"`
	Mode          *string  `json:"mode,omitempty"`
	Enabled       *bool    `json:"enabled,omitempty"`
	TargetTemp    *float64 `json:"target_temp,omitempty"`
	MinTargetTemp *float64 `json:"min_target_temp,omitempty"`
	MaxTargetTemp *float64 `json:"max_target_temp,omitempty"`
	Temp          *float64 `json:"temp,omitempty"`
}

// StateWifi describes the network link.
type StateWifi struct {
	Version   *string `json:"version,omitempty"`
	MAC       *string `json:"mac,omitempty"`
	SSID      *string `json:"ssid,omitempty"`
	IP        *string `json:"ip,omitempty"`
	Mask      *string `json:"mask,omitempty"`
	Gateway   *string `json:"gateway,omitempty"`
	DNS       *string `json:"dns,omitempty"`
	Static    *bool   `json:"static,omitempty"`
	Connected *bool   `json:"connected,omitempty"`
}

// StateConfig carries the configuration change timestamp.
type StateConfig struct {
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// StateDDIChannel is one channel of the DALI/DMX extension.
type StateDDIChannel struct {
	On               *bool `json:"on,omitempty"`
	Brightness       *int  `json:"brightness,omitempty"`
	ColorTemperature *int  `json:"color_temperature,omitempty"`
}

// State is the full device state returned by /api/v1/state.
type State struct {
	Dimmers     []StateDimmer     `json:"dimmers,omitempty"`
	Blinds      []StateBlind      `json:"blinds,omitempty"`
	LED         *StateLED         `json:"led,omitempty"`
	Sensors     *StateSensors     `json:"sensors,omitempty"`
	DynLight    *StateDynLight    `json:"dyn_light,omitempty"`
	Thermostat  *StateThermostat  `json:"thermostat,omitempty"`
	Wifi        *StateWifi        `json:"wifi,omitempty"`
	Config      *StateConfig      `json:"config,omitempty"`
	Time        *string           `json:"time,omitempty"`
	DDIChannels []StateDDIChannel `json:"ddi_channels,omitempty"`
}

// Dimmer returns the dimmer at index, or nil if the payload has none.
func (s *State) Dimmer(index int) *StateDimmer {
	if s == nil || index < 0 || index >= len(s.Dimmers) {
		return nil
	}
	return &s.Dimmers[index]
}

// Blind returns the blind at index, or nil if the payload has none.
func (s *State) Blind(index int) *StateBlind {
	if s == nil || index < 0 || index >= len(s.Blinds) {
		return nil
	}
	return &s.Blinds[index]
}

// MAC returns the raw MAC address reported in the wifi block.
func (s *State) MAC() (string, bool) {
	if s == nil || s.Wifi == nil || s.Wifi.MAC == nil || *s.Wifi.MAC == "" {
		return "", false
	}
	return *s.Wifi.MAC, true
}
