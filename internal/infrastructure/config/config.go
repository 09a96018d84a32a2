package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the hubsync agent.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Hub       HubConfig       `yaml:"hub"`
	Pairing   PairingConfig   `yaml:"pairing"`
	Database  DatabaseConfig  `yaml:"database"`
	Cloud     CloudConfig     `yaml:"cloud"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig seeds the device descriptor on first start.
// Empty values leave the stored descriptor untouched.
type DeviceConfig struct {
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	RestaurantID string `yaml:"restaurant_id"`
}

// HubConfig contains the hub session settings.
type HubConfig struct {
	// Transport selects the session transport: "webrtc" or "websocket".
	Transport string `yaml:"transport"`

	// Signaling selects how the hub answer is obtained: "http" or "manual".
	// Ignored for the websocket transport.
	Signaling string `yaml:"signaling"`

	// ICEServers are used when the pairing offer carries none.
	ICEServers []string `yaml:"ice_servers"`

	Reconnect ReconnectConfig `yaml:"reconnect"`

	// PingInterval is the keepalive period in seconds.
	PingInterval int `yaml:"ping_interval"`

	// ConnectTimeout bounds a single connection attempt, in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// SyncOnReconnect sends a sync_request after every re-registration.
	SyncOnReconnect bool `yaml:"sync_on_reconnect"`
}

// ReconnectConfig contains reconnection scheduling settings.
type ReconnectConfig struct {
	// Policy is "fixed" or "backoff".
	Policy       string `yaml:"policy"`
	Interval     int    `yaml:"interval"`
	InitialDelay int    `yaml:"initial_delay"`
	MaxDelay     int    `yaml:"max_delay"`
	// MaxAttempts limits consecutive attempts. 0 means unlimited.
	MaxAttempts int `yaml:"max_attempts"`
}

// PairingConfig contains pairing code settings.
type PairingConfig struct {
	// MaxOfferAge rejects offers issued longer ago than this, in seconds.
	// 0 disables the check.
	MaxOfferAge int `yaml:"max_offer_age"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// CloudConfig contains the cloud MQTT broker settings used while the hub
// is unreachable.
type CloudConfig struct {
	Enabled   bool                 `yaml:"enabled"`
	Broker    CloudBrokerConfig    `yaml:"broker"`
	Auth      CloudAuthConfig      `yaml:"auth"`
	QoS       int                  `yaml:"qos"`
	Reconnect CloudReconnectConfig `yaml:"reconnect"`
}

// CloudBrokerConfig contains MQTT broker connection details.
type CloudBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// CloudAuthConfig contains MQTT authentication credentials.
type CloudAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// CloudReconnectConfig contains MQTT reconnection settings.
type CloudReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
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

// APIConfig contains the local agent HTTP API settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains the event stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
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
// Environment variables follow the pattern: HUBSYNC_SECTION_KEY
// For example: HUBSYNC_DATABASE_PATH, HUBSYNC_DEVICE_RESTAURANT_ID
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

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

// Default returns a Config populated with defaults only.
// Used by commands that can run without a config file.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{},
		Hub: HubConfig{
			Transport: "webrtc",
			Signaling: "http",
			ICEServers: []string{
				"stun:stun.l.google.com:19302",
			},
			Reconnect: ReconnectConfig{
				Policy:       "fixed",
				Interval:     5,
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			PingInterval:    30,
			ConnectTimeout:  20,
			SyncOnReconnect: true,
		},
		Pairing: PairingConfig{
			MaxOfferAge: 0,
		},
		Database: DatabaseConfig{
			Path:        "./data/hubsync.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Cloud: CloudConfig{
			Broker: CloudBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hubsync",
			},
			QoS: 1,
			Reconnect: CloudReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8420,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HUBSYNC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("HUBSYNC_DEVICE_NAME"); v != "" {
		cfg.Device.Name = v
	}
	if v := os.Getenv("HUBSYNC_DEVICE_ROLE"); v != "" {
		cfg.Device.Role = v
	}
	if v := os.Getenv("HUBSYNC_DEVICE_RESTAURANT_ID"); v != "" {
		cfg.Device.RestaurantID = v
	}

	// Hub
	if v := os.Getenv("HUBSYNC_HUB_TRANSPORT"); v != "" {
		cfg.Hub.Transport = v
	}
	if v := os.Getenv("HUBSYNC_HUB_PING_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Hub.PingInterval = n
		}
	}

	// Database
	if v := os.Getenv("HUBSYNC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Cloud
	if v := os.Getenv("HUBSYNC_CLOUD_HOST"); v != "" {
		cfg.Cloud.Broker.Host = v
	}
	if v := os.Getenv("HUBSYNC_CLOUD_USERNAME"); v != "" {
		cfg.Cloud.Auth.Username = v
	}
	if v := os.Getenv("HUBSYNC_CLOUD_PASSWORD"); v != "" {
		cfg.Cloud.Auth.Password = v
	}

	// API
	if v := os.Getenv("HUBSYNC_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("HUBSYNC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
// All problems are reported together.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch c.Hub.Transport {
	case "webrtc", "websocket":
	default:
		errs = append(errs, "hub.transport must be webrtc or websocket")
	}
	switch c.Hub.Signaling {
	case "http", "manual":
	default:
		errs = append(errs, "hub.signaling must be http or manual")
	}
	switch c.Hub.Reconnect.Policy {
	case "fixed":
		if c.Hub.Reconnect.Interval < 1 {
			errs = append(errs, "hub.reconnect.interval must be at least 1 second")
		}
	case "backoff":
		if c.Hub.Reconnect.InitialDelay < 1 {
			errs = append(errs, "hub.reconnect.initial_delay must be at least 1 second")
		}
		if c.Hub.Reconnect.MaxDelay < c.Hub.Reconnect.InitialDelay {
			errs = append(errs, "hub.reconnect.max_delay must not be less than initial_delay")
		}
	default:
		errs = append(errs, "hub.reconnect.policy must be fixed or backoff")
	}
	if c.Hub.Reconnect.MaxAttempts < 0 {
		errs = append(errs, "hub.reconnect.max_attempts must not be negative")
	}
	if c.Hub.PingInterval < 1 {
		errs = append(errs, "hub.ping_interval must be at least 1 second")
	}
	if c.Hub.ConnectTimeout < 1 {
		errs = append(errs, "hub.connect_timeout must be at least 1 second")
	}

	if c.Pairing.MaxOfferAge < 0 {
		errs = append(errs, "pairing.max_offer_age must not be negative")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Cloud.QoS < 0 || c.Cloud.QoS > 2 {
		errs = append(errs, "cloud.qos must be 0, 1, or 2")
	}
	if c.Cloud.Enabled && c.Cloud.Broker.Host == "" {
		errs = append(errs, "cloud.broker.host is required when cloud is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPingInterval returns the hub keepalive period as a Duration.
func (c *Config) GetPingInterval() time.Duration {
	return time.Duration(c.Hub.PingInterval) * time.Second
}

// GetConnectTimeout returns the per-attempt connection timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Hub.ConnectTimeout) * time.Second
}

// GetMaxOfferAge returns the pairing offer age limit. Zero means no limit.
func (c *Config) GetMaxOfferAge() time.Duration {
	return time.Duration(c.Pairing.MaxOfferAge) * time.Second
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
