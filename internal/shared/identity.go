package shared

import (
	"strings"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
)

// Manufacturer of every dingz.
const Manufacturer = "iolo AG"

// Identity describes a device as established by its first refresh.
type Identity struct {
	// Name is the configured name of the device in this service.
	Name string `json:"name"`

	// ID is the system id at startup. The live MQTT namespace follows the
	// config and may differ later.
	ID  string `json:"id"`
	MAC string `json:"mac"`

	DisplayName      string `json:"display_name,omitempty"`
	Room             string `json:"room,omitempty"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model,omitempty"`
	SWVersion        string `json:"sw_version,omitempty"`
	HWVersion        string `json:"hw_version,omitempty"`
	ConfigurationURL string `json:"configuration_url"`
}

func newIdentity(name, baseURL, mac string, cfg *dingz.FullDeviceConfig) Identity {
	return Identity{
		Name:             name,
		ID:               cfg.SystemID(),
		MAC:              mac,
		DisplayName:      deref(cfg.System.DingzName),
		Room:             deref(cfg.System.RoomName),
		Manufacturer:     Manufacturer,
		Model:            deref(cfg.Device.PuckHWModel),
		SWVersion:        deref(cfg.Device.FWVersion),
		HWVersion:        deref(cfg.Device.HWVersion),
		ConfigurationURL: baseURL,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FormatMAC normalises a MAC address to lower-case colon-separated form.
//
// Accepted inputs are twelve characters without separators, the colon and
// dash forms, and the dotted aaaa.bbbb.cccc form. Anything else is returned
// unchanged.
func FormatMAC(mac string) string {
	raw := mac
	switch {
	case len(raw) == 17 && strings.Count(raw, ":") == 5:
		return strings.ToLower(raw)
	case len(raw) == 17 && strings.Count(raw, "-") == 5:
		raw = strings.ReplaceAll(raw, "-", "")
	case len(raw) == 14 && strings.Count(raw, ".") == 2:
		raw = strings.ReplaceAll(raw, ".", "")
	}
	if len(raw) != 12 {
		return mac
	}

	lower := strings.ToLower(raw)
	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, lower[i:i+2])
	}
	return strings.Join(parts, ":")
}
