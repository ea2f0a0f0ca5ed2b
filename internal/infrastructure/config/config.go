package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for dingz-bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Devices   []DeviceConfig  `yaml:"devices"`
	Client    ClientConfig    `yaml:"client"`
	Polling   PollingConfig   `yaml:"polling"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig identifies one dingz on the local network.
type DeviceConfig struct {
	// Name is the local handle used in logs and API paths.
	Name string `yaml:"name"`

	// BaseURL is the device address, e.g. "http://10.0.3.39".
	BaseURL string `yaml:"base_url"`
}

// ClientConfig tunes the HTTP client shared by all devices.
type ClientConfig struct {
	ReadAttempts    int           `yaml:"read_attempts"`
	ReadRetryDelay  time.Duration `yaml:"read_retry_delay"`
	WriteAttempts   int           `yaml:"write_attempts"`
	WriteRetryDelay time.Duration `yaml:"write_retry_delay"`

	// MinInterval is the minimum spacing between two requests to one device.
	MinInterval time.Duration `yaml:"min_interval"`

	// RequestTimeout bounds a single HTTP attempt.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PollingConfig contains the refresh schedule of the coordinators.
type PollingConfig struct {
	StateInterval  time.Duration `yaml:"state_interval"`
	ConfigInterval time.Duration `yaml:"config_interval"`

	// SettleDelay is how long to wait after a command before refreshing.
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetention is how long refresh and notification history is kept.
	HistoryRetention time.Duration `yaml:"history_retention"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DINGZ_SECTION_KEY
// For example: DINGZ_DATABASE_PATH, DINGZ_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			ReadAttempts:    5,
			ReadRetryDelay:  time.Second,
			WriteAttempts:   3,
			WriteRetryDelay: 3 * time.Second,
			MinInterval:     200 * time.Millisecond,
			RequestTimeout:  10 * time.Second,
		},
		Polling: PollingConfig{
			StateInterval:  30 * time.Second,
			ConfigInterval: 5 * time.Minute,
			SettleDelay:    time.Second,
		},
		Database: DatabaseConfig{
			Enabled:          true,
			Path:             "./data/dingz-bridge.db",
			WALMode:          true,
			BusyTimeout:      5,
			HistoryRetention: 7 * 24 * time.Hour,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "dingz-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DINGZ_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("DINGZ_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("DINGZ_MQTT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.MQTT.Enabled = enabled
		}
	}
	if v := os.Getenv("DINGZ_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DINGZ_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DINGZ_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("DINGZ_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("DINGZ_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("DINGZ_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("DINGZ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Devices
	if len(c.Devices) == 0 {
		errs = append(errs, "at least one device is required")
	}
	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.Name == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].name is required", i))
		} else if seen[d.Name] {
			errs = append(errs, fmt.Sprintf("devices[%d].name %q is duplicated", i, d.Name))
		}
		seen[d.Name] = true

		if d.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].base_url is required", i))
		} else if _, err := url.Parse(d.BaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("devices[%d].base_url is invalid: %v", i, err))
		}
	}

	// Client
	if c.Client.ReadAttempts < 1 || c.Client.WriteAttempts < 1 {
		errs = append(errs, "client.read_attempts and client.write_attempts must be at least 1")
	}
	if c.Client.MinInterval < 0 {
		errs = append(errs, "client.min_interval must not be negative")
	}

	// Polling
	if c.Polling.StateInterval <= 0 {
		errs = append(errs, "polling.state_interval must be positive")
	}
	if c.Polling.ConfigInterval <= 0 {
		errs = append(errs, "polling.config_interval must be positive")
	}

	// Database
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
