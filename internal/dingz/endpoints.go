package dingz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// API paths.
const (
	pathState          = "/api/v1/state"
	pathDevice         = "/api/v1/device"
	pathInfo           = "/api/v1/info"
	pathSystemConfig   = "/api/v1/system_config"
	pathServicesConfig = "/api/v1/services_config"
	pathInputConfig    = "/api/v1/input_config"
	pathOutputConfig   = "/api/v1/output_config"
	pathButtonConfig   = "/api/v1/button_config"
	pathDimmerConfig   = "/api/v1/dimmer_config"
	pathBlindConfig    = "/api/v1/blind_config"
	pathPIRConfig      = "/api/v1/pir_config"
	pathThermostat     = "/api/v1/thermostat_config"
	pathLEDSet         = "/api/v1/led/set"
	pathSaveDefault    = "/api/v1/save_default_config"
	pathReboot         = "/api/v1/reboot"
)

// GetState fetches the full device state.
func (c *Client) GetState(ctx context.Context) (*State, error) {
	var s State
	if err := c.Get(ctx, pathState, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetDevice fetches the device descriptor.
//
// The endpoint returns an object keyed by device id and is expected to
// hold exactly one entry. When more are present the first one in document
// order is returned and the others are logged.
func (c *Client) GetDevice(ctx context.Context) (string, *Device, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, pathDevice, &raw); err != nil {
		return "", nil, err
	}

	ids, first, err := decodeDeviceMap(raw)
	if err != nil {
		return "", nil, fmt.Errorf("decoding device map: %w", err)
	}
	if len(ids) == 0 {
		return "", nil, ErrNoDevice
	}
	if len(ids) > 1 {
		c.logger.Warn("device endpoint returned more than one device, using the first",
			"device_id", ids[0],
			"ignored", ids[1:])
	}
	return ids[0], first, nil
}

// decodeDeviceMap walks the id → descriptor object in document order. Only
// the first descriptor is decoded; the rest are skipped.
func decodeDeviceMap(raw []byte) ([]string, *Device, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var (
		ids   []string
		first *Device
	)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		id, _ := keyTok.(string)

		if first == nil {
			var d Device
			if err := dec.Decode(&d); err != nil {
				return nil, nil, fmt.Errorf("device %s: %w", id, err)
			}
			first = &d
		} else {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, nil, err
			}
		}
		ids = append(ids, id)
	}

	return ids, first, nil
}

// GetInfo fetches the network summary.
func (c *Client) GetInfo(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.Get(ctx, pathInfo, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetSystemConfig fetches the system configuration.
func (c *Client) GetSystemConfig(ctx context.Context) (*SystemConfig, error) {
	var cfg SystemConfig
	if err := c.Get(ctx, pathSystemConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetServicesConfig fetches the services configuration.
func (c *Client) GetServicesConfig(ctx context.Context) (*ServicesConfig, error) {
	var cfg ServicesConfig
	if err := c.Get(ctx, pathServicesConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetInputConfig fetches the input wiring.
func (c *Client) GetInputConfig(ctx context.Context) ([]InputConfig, error) {
	var resp struct {
		Inputs []InputConfig `json:"inputs"`
	}
	if err := c.Get(ctx, pathInputConfig, &resp); err != nil {
		return nil, err
	}
	return resp.Inputs, nil
}

// GetOutputConfig fetches the output wiring.
func (c *Client) GetOutputConfig(ctx context.Context) ([]OutputConfig, error) {
	var resp struct {
		Outputs []OutputConfig `json:"outputs"`
	}
	if err := c.Get(ctx, pathOutputConfig, &resp); err != nil {
		return nil, err
	}
	return resp.Outputs, nil
}

// GetButtonConfig fetches the button configuration.
func (c *Client) GetButtonConfig(ctx context.Context) ([]ButtonConfig, error) {
	var resp struct {
		Buttons []ButtonConfig `json:"buttons"`
	}
	if err := c.Get(ctx, pathButtonConfig, &resp); err != nil {
		return nil, err
	}
	return resp.Buttons, nil
}

// GetDimmerConfig fetches the dimmer configuration.
func (c *Client) GetDimmerConfig(ctx context.Context) ([]DimmerConfig, error) {
	var resp struct {
		Dimmers []DimmerConfig `json:"dimmers"`
	}
	if err := c.Get(ctx, pathDimmerConfig, &resp); err != nil {
		return nil, err
	}
	return resp.Dimmers, nil
}

// GetBlindConfig fetches the blind configuration.
func (c *Client) GetBlindConfig(ctx context.Context) ([]BlindConfig, error) {
	var resp struct {
		Blinds []BlindConfig `json:"blinds"`
	}
	if err := c.Get(ctx, pathBlindConfig, &resp); err != nil {
		return nil, err
	}
	return resp.Blinds, nil
}

// GetPIRConfig fetches the motion sensor configuration.
func (c *Client) GetPIRConfig(ctx context.Context) (*PIRConfig, error) {
	var cfg PIRConfig
	if err := c.Get(ctx, pathPIRConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetFullDeviceConfig fetches the device descriptor and every
// configuration document one after another and combines them. The motion
// sensor configuration is only requested when the device reports a PIR.
//
// Any failing sub-request fails the whole call; no partial aggregate is
// returned.
func (c *Client) GetFullDeviceConfig(ctx context.Context) (*FullDeviceConfig, error) {
	id, device, err := c.GetDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	system, err := c.GetSystemConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("system config: %w", err)
	}
	services, err := c.GetServicesConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("services config: %w", err)
	}
	inputs, err := c.GetInputConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("input config: %w", err)
	}
	outputs, err := c.GetOutputConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("output config: %w", err)
	}
	buttons, err := c.GetButtonConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("button config: %w", err)
	}
	dimmers, err := c.GetDimmerConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("dimmer config: %w", err)
	}
	blinds, err := c.GetBlindConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("blind config: %w", err)
	}

	var pir *PIRConfig
	if device.HasPIR != nil && *device.HasPIR {
		if pir, err = c.GetPIRConfig(ctx); err != nil {
			return nil, fmt.Errorf("pir config: %w", err)
		}
	}

	return &FullDeviceConfig{
		ID:       id,
		Device:   *device,
		System:   *system,
		Services: *services,
		Inputs:   inputs,
		Outputs:  outputs,
		Buttons:  buttons,
		Dimmers:  dimmers,
		Blinds:   blinds,
		PIR:      pir,
	}, nil
}
