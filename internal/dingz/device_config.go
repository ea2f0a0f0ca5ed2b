package dingz

import "encoding/json"

// Device describes the hardware reported by /api/v1/device.
type Device struct {
	Type                *string         `json:"type,omitempty"`
	Battery             *bool           `json:"battery,omitempty"`
	Reachable           *bool           `json:"reachable,omitempty"`
	MeshRoot            *bool           `json:"meshroot,omitempty"`
	FWVersion           *string         `json:"fw_version,omitempty"`
	HWVersion           *string         `json:"hw_version,omitempty"`
	FWVersionPuck       *string         `json:"fw_version_puck,omitempty"`
	BLVersionPuck       *string         `json:"bl_version_puck,omitempty"`
	HWVersionPuck       *string         `json:"hw_version_puck,omitempty"`
	HWIDPuck            *int            `json:"hw_id_puck,omitempty"`
	PuckSN              *string         `json:"puck_sn,omitempty"`
	PuckProductionDate  json.RawMessage `json:"puck_production_date,omitempty"`
	DIPConfig           *int            `json:"dip_config,omitempty"`
	DIPStatic           *bool           `json:"dip_static,omitempty"`
	DIPMisconf          *bool           `json:"dip_misconf,omitempty"`
	PuckHWModel         *string         `json:"puck_hw_model,omitempty"`
	FrontHWModel        *string         `json:"front_hw_model,omitempty"`
	FrontProductionDate *string         `json:"front_production_date,omitempty"`
	FrontSN             *string         `json:"front_sn,omitempty"`
	FrontColor          *string         `json:"front_color,omitempty"`
	HasPIR              *bool           `json:"has_pir,omitempty"`
	DDIBase             *bool           `json:"ddi_base,omitempty"`
	Hash                *string         `json:"hash,omitempty"`
}

// Info is the network summary returned by /api/v1/info.
type Info struct {
	Version   *string `json:"version,omitempty"`
	MAC       *string `json:"mac,omitempty"`
	Type      *int    `json:"type,omitempty"`
	SSID      *string `json:"ssid,omitempty"`
	IP        *string `json:"ip,omitempty"`
	Mask      *string `json:"mask,omitempty"`
	Gateway   *string `json:"gw,omitempty"`
	DNS       *string `json:"dns,omitempty"`
	Static    *bool   `json:"static,omitempty"`
	Connected *bool   `json:"connected,omitempty"`
}

// TempComp holds the temperature compensation parameters.
type TempComp struct {
	FETOffset *float64 `json:"fet_offset,omitempty"`
	GainUp    *float64 `json:"gain_up,omitempty"`
	GainDown  *float64 `json:"gain_down,omitempty"`
	GainTotal *float64 `json:"gain_total,omitempty"`
}

// SystemConfig is returned by /api/v1/system_config.
type SystemConfig struct {
	ID                *string   `json:"id,omitempty"`
	AllowReset        *bool     `json:"allow_reset,omitempty"`
	AllowWPS          *bool     `json:"allow_wps,omitempty"`
	AllowReboot       *bool     `json:"allow_reboot,omitempty"`
	BroadcastPeriod   *int      `json:"broadcast_period,omitempty"`
	MDNSSearchPeriod  *int      `json:"mdns_search_period,omitempty"`
	Origin            *bool     `json:"origin,omitempty"`
	UpgradeBlink      *bool     `json:"upgrade_blink,omitempty"`
	RebootBlink       *bool     `json:"reboot_blink,omitempty"`
	DingzName         *string   `json:"dingz_name,omitempty"`
	RoomName          *string   `json:"room_name,omitempty"`
	TempOffset        *float64  `json:"temp_offset,omitempty"`
	FETOffset         *float64  `json:"fet_offset,omitempty"`
	CPUOffset         *float64  `json:"cpu_offset,omitempty"`
	Groups            []bool    `json:"groups,omitempty"`
	TempComp          *TempComp `json:"temp_comp,omitempty"`
	Time              *string   `json:"time,omitempty"`
	SystemStatus      *string   `json:"system_status,omitempty"`
}

// SystemConfigUpdate is a partial system configuration. Nil fields are
// left untouched on the device.
type SystemConfigUpdate struct {
	DingzName  *string  `json:"dingz_name,omitempty"`
	RoomName   *string  `json:"room_name,omitempty"`
	TempOffset *float64 `json:"temp_offset,omitempty"`
}

// MQTTServerConfig holds TLS material for the MQTT service.
type MQTTServerConfig struct {
	Cert *string `json:"crt,omitempty"`
}

// ServicesConfigMQTT is the MQTT service configuration of the device.
type ServicesConfigMQTT struct {
	Enable *bool             `json:"enable,omitempty"`
	URI    *string           `json:"uri,omitempty"`
	Server *MQTTServerConfig `json:"server,omitempty"`
}

// ServicesConfig is returned by /api/v1/services_config.
type ServicesConfig struct {
	MQTT *ServicesConfigMQTT `json:"mqtt,omitempty"`
}

// InputSettings is the electrical behaviour of an input.
type InputSettings struct {
	Type   *string `json:"type,omitempty"`
	Invert *bool   `json:"invert,omitempty"`
}

// InputConfig is one entry of /api/v1/input_config.
type InputConfig struct {
	Active *bool          `json:"active,omitempty"`
	Name   *string        `json:"name,omitempty"`
	Input  *InputSettings `json:"input,omitempty"`
}

// OutputLightConfig describes an output wired to a light.
type OutputLightConfig struct {
	Dimmable *bool `json:"dimmable,omitempty"`
}

// OutputConfig is one entry of /api/v1/output_config.
type OutputConfig struct {
	Active *bool              `json:"active,omitempty"`
	Type   *string            `json:"type,omitempty"`
	Name   *string            `json:"name,omitempty"`
	Light  *OutputLightConfig `json:"light,omitempty"`
}

// IsActive reports whether the output is active and of the given type.
func (o OutputConfig) IsActive(typ string) bool {
	return o.Active != nil && *o.Active && o.Type != nil && *o.Type == typ
}

// ButtonConfig is one entry of /api/v1/button_config.
type ButtonConfig struct {
	Active *bool   `json:"active,omitempty"`
	Name   *string `json:"name,omitempty"`
}

// DimmerConfig is one entry of /api/v1/dimmer_config.
type DimmerConfig struct {
	Output            *string `json:"output,omitempty"`
	Name              *string `json:"name,omitempty"`
	Feedback          *string `json:"feedback,omitempty"`
	FeedbackIntensity *int    `json:"feedback_intensity,omitempty"`
}

// BlindConfig is one entry of /api/v1/blind_config.
type BlindConfig struct {
	Active          *bool    `json:"active,omitempty"`
	Name            *string  `json:"name,omitempty"`
	Type            *string  `json:"type,omitempty"`
	MinValue        *int     `json:"min_value,omitempty"`
	MaxValue        *int     `json:"max_value,omitempty"`
	DefBlind        *int     `json:"def_blind,omitempty"`
	DefLamella      *int     `json:"def_lamella,omitempty"`
	Groups          *string  `json:"groups,omitempty"`
	AutoCalibration *bool    `json:"auto_calibration,omitempty"`
	ShadeUpTime     *float64 `json:"shade_up_time,omitempty"`
	ShadeDownTime   *float64 `json:"shade_down_time,omitempty"`
	InvertDirection *bool    `json:"invert_direction,omitempty"`
	LamellaTime     *float64 `json:"lamella_time,omitempty"`
	StepDuration    *int     `json:"step_duration,omitempty"`
	StepInterval    *int     `json:"step_interval,omitempty"`
	State           *string  `json:"state,omitempty"`
}

// PIRThresholds are the brightness thresholds of the day/night model.
type PIRThresholds struct {
	TwilightToNight *int `json:"twilight_to_night,omitempty"`
	NightToTwilight *int `json:"night_to_twilight,omitempty"`
	DayToTwilight   *int `json:"day_to_twilight,omitempty"`
	TwilightToDay   *int `json:"twilight_to_day,omitempty"`
}

// PIRDimmerConfig is the per-dimmer motion response.
type PIRDimmerConfig struct {
	ValueNight    *int `json:"value_night,omitempty"`
	ValueTwilight *int `json:"value_twilight,omitempty"`
	ValueDay      *int `json:"value_day,omitempty"`
	FadeInTime    *int `json:"fade_in_time,omitempty"`
	FadeOutTime   *int `json:"fade_out_time,omitempty"`
}

// PIRConfig is returned by /api/v1/pir_config.
type PIRConfig struct {
	PIROutput         *int              `json:"pir_output,omitempty"`
	PIRFeedback       *string           `json:"pir_feedback,omitempty"`
	FeedbackIntensity *int              `json:"feedback_intensity,omitempty"`
	Thresholds        *PIRThresholds    `json:"thresholds,omitempty"`
	OnTime            *int              `json:"on_time,omitempty"`
	OffTime           *int              `json:"off_time,omitempty"`
	DimValueNight     *int              `json:"dim_value_night,omitempty"`
	DimValueTwilight  *int              `json:"dim_value_twilight,omitempty"`
	FadeInTime        *int              `json:"fade_in_time,omitempty"`
	FadeOutTime       *int              `json:"fade_out_time,omitempty"`
	FeedbackTime      *int              `json:"feedback_time,omitempty"`
	Dimmer            []PIRDimmerConfig `json:"dimmer,omitempty"`
	Enabled           *bool             `json:"enabled,omitempty"`
	BackoffTime       *int              `json:"backoff_time,omitempty"`
	LightLPF          *bool             `json:"light_lpf,omitempty"`
}

// ThermostatConfigUpdate is a partial thermostat configuration.
type ThermostatConfigUpdate struct {
	Enable      *bool    `json:"enable,omitempty"`
	FreeCooling *bool    `json:"free_cooling,omitempty"`
	Cooling     *bool    `json:"cooling,omitempty"`
	TargetTemp  *float64 `json:"target_temp,omitempty"`
}

// FullDeviceConfig is the aggregate configuration snapshot.
type FullDeviceConfig struct {
	ID       string         `json:"id"`
	Device   Device         `json:"device"`
	System   SystemConfig   `json:"system"`
	Services ServicesConfig `json:"services"`
	Inputs   []InputConfig  `json:"inputs"`
	Outputs  []OutputConfig `json:"outputs"`
	Buttons  []ButtonConfig `json:"buttons"`
	Dimmers  []DimmerConfig `json:"dimmers"`
	Blinds   []BlindConfig  `json:"blinds"`
	PIR      *PIRConfig     `json:"pir,omitempty"`
}

// BlindName returns the configured name of the blind at index, or "" when
// none is set.
func (c *FullDeviceConfig) BlindName(index int) string {
	if c == nil || index < 0 || index >= len(c.Blinds) || c.Blinds[index].Name == nil {
		return ""
	}
	return *c.Blinds[index].Name
}

// BlindActive reports whether the blind at index is enabled. Blinds with no
// configuration entry are treated as active.
func (c *FullDeviceConfig) BlindActive(index int) bool {
	if c == nil || index < 0 || index >= len(c.Blinds) || c.Blinds[index].Active == nil {
		return true
	}
	return *c.Blinds[index].Active
}

// DimmerName returns the dimmer configuration name at index, or "".
func (c *FullDeviceConfig) DimmerName(index int) string {
	if c == nil || index < 0 || index >= len(c.Dimmers) || c.Dimmers[index].Name == nil {
		return ""
	}
	return *c.Dimmers[index].Name
}

// SystemID returns the identifier used in the device's MQTT topics.
func (c *FullDeviceConfig) SystemID() string {
	if c == nil || c.System.ID == nil {
		return ""
	}
	return *c.System.ID
}
