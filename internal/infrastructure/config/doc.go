// Package config loads the dingz-bridge YAML file.
//
// Values are resolved in three layers: built-in defaults, then the file,
// then DINGZ_* environment variables. Validate collects every problem into
// one error so a broken file can be fixed in a single pass.
//
// Each entry under devices names one dingz and its base URL. The client
// and polling sections apply to all devices; the remaining sections switch
// the optional SQLite history, MQTT bridge, InfluxDB telemetry and HTTP
// API on or off.
//
// Keep the MQTT password and InfluxDB token out of the file and pass them
// through DINGZ_MQTT_PASSWORD and DINGZ_INFLUXDB_TOKEN.
//
// Example:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	for _, d := range cfg.Devices {
//	    fmt.Println(d.Name, d.BaseURL)
//	}
//
// Durations accept Go duration strings such as "30s" or "5m".
package config
