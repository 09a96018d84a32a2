package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "hubsync.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
device:
  name: "Bar Tablet"
  role: "bar"
  restaurant_id: "rest-42"
hub:
  transport: "websocket"
  ping_interval: 15
  reconnect:
    policy: "backoff"
    initial_delay: 2
    max_delay: 30
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
cloud:
  enabled: true
  broker:
    host: "mqtt.menuhub.app"
    port: 8883
    tls: true
  qos: 1
api:
  port: 9000
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.RestaurantID != "rest-42" {
		t.Errorf("Device.RestaurantID = %q, want %q", cfg.Device.RestaurantID, "rest-42")
	}
	if cfg.Hub.Transport != "websocket" {
		t.Errorf("Hub.Transport = %q, want %q", cfg.Hub.Transport, "websocket")
	}
	if cfg.Hub.Reconnect.Policy != "backoff" {
		t.Errorf("Hub.Reconnect.Policy = %q, want %q", cfg.Hub.Reconnect.Policy, "backoff")
	}
	if cfg.GetPingInterval() != 15*time.Second {
		t.Errorf("GetPingInterval() = %v, want 15s", cfg.GetPingInterval())
	}
	if cfg.Cloud.Broker.Host != "mqtt.menuhub.app" {
		t.Errorf("Cloud.Broker.Host = %q, want %q", cfg.Cloud.Broker.Host, "mqtt.menuhub.app")
	}

	// Unset keys keep their defaults.
	if cfg.Hub.Signaling != "http" {
		t.Errorf("Hub.Signaling = %q, want default %q", cfg.Hub.Signaling, "http")
	}
	if !cfg.Hub.SyncOnReconnect {
		t.Error("Hub.SyncOnReconnect should default to true")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/hubsync.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
hub:
  transport: "carrier-pigeon"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for unknown transport, got nil")
	}
	if !strings.Contains(err.Error(), "hub.transport") {
		t.Errorf("error %q should mention hub.transport", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown signaling",
			mutate:  func(c *Config) { c.Hub.Signaling = "smoke" },
			wantErr: "hub.signaling",
		},
		{
			name:    "zero fixed interval",
			mutate:  func(c *Config) { c.Hub.Reconnect.Interval = 0 },
			wantErr: "hub.reconnect.interval",
		},
		{
			name: "backoff max below initial",
			mutate: func(c *Config) {
				c.Hub.Reconnect.Policy = "backoff"
				c.Hub.Reconnect.InitialDelay = 10
				c.Hub.Reconnect.MaxDelay = 5
			},
			wantErr: "hub.reconnect.max_delay",
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.Hub.Reconnect.Policy = "random" },
			wantErr: "hub.reconnect.policy",
		},
		{
			name:    "negative max attempts",
			mutate:  func(c *Config) { c.Hub.Reconnect.MaxAttempts = -1 },
			wantErr: "hub.reconnect.max_attempts",
		},
		{
			name:    "zero ping interval",
			mutate:  func(c *Config) { c.Hub.PingInterval = 0 },
			wantErr: "hub.ping_interval",
		},
		{
			name:    "negative offer age",
			mutate:  func(c *Config) { c.Pairing.MaxOfferAge = -5 },
			wantErr: "pairing.max_offer_age",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.Cloud.QoS = 3 },
			wantErr: "cloud.qos",
		},
		{
			name: "cloud enabled without host",
			mutate: func(c *Config) {
				c.Cloud.Enabled = true
				c.Cloud.Broker.Host = ""
			},
			wantErr: "cloud.broker.host",
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Database.Path = ""
	cfg.API.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"database.path", "api.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestConfig_GetDurations(t *testing.T) {
	cfg := &Config{
		Hub: HubConfig{PingInterval: 30, ConnectTimeout: 20},
		Pairing: PairingConfig{
			MaxOfferAge: 300,
		},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	checks := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"GetPingInterval", cfg.GetPingInterval(), 30 * time.Second},
		{"GetConnectTimeout", cfg.GetConnectTimeout(), 20 * time.Second},
		{"GetMaxOfferAge", cfg.GetMaxOfferAge(), 5 * time.Minute},
		{"GetReadTimeout", cfg.GetReadTimeout(), 30 * time.Second},
		{"GetWriteTimeout", cfg.GetWriteTimeout(), 45 * time.Second},
		{"GetIdleTimeout", cfg.GetIdleTimeout(), 60 * time.Second},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s() = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("HUBSYNC_DEVICE_NAME", "Kitchen Display")
	t.Setenv("HUBSYNC_DEVICE_ROLE", "kitchen")
	t.Setenv("HUBSYNC_DEVICE_RESTAURANT_ID", "rest-7")
	t.Setenv("HUBSYNC_HUB_TRANSPORT", "websocket")
	t.Setenv("HUBSYNC_HUB_PING_INTERVAL", "10")
	t.Setenv("HUBSYNC_DATABASE_PATH", "/custom/path.db")
	t.Setenv("HUBSYNC_CLOUD_HOST", "mqtt.example.com")
	t.Setenv("HUBSYNC_CLOUD_USERNAME", "testuser")
	t.Setenv("HUBSYNC_CLOUD_PASSWORD", "testpass")
	t.Setenv("HUBSYNC_API_HOST", "192.168.1.1")
	t.Setenv("HUBSYNC_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	checks := []struct {
		field, got, want string
	}{
		{"Device.Name", cfg.Device.Name, "Kitchen Display"},
		{"Device.Role", cfg.Device.Role, "kitchen"},
		{"Device.RestaurantID", cfg.Device.RestaurantID, "rest-7"},
		{"Hub.Transport", cfg.Hub.Transport, "websocket"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"Cloud.Broker.Host", cfg.Cloud.Broker.Host, "mqtt.example.com"},
		{"Cloud.Auth.Username", cfg.Cloud.Auth.Username, "testuser"},
		{"Cloud.Auth.Password", cfg.Cloud.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
	if cfg.Hub.PingInterval != 10 {
		t.Errorf("Hub.PingInterval = %d, want 10", cfg.Hub.PingInterval)
	}
}

func TestApplyEnvOverrides_IgnoresBadInteger(t *testing.T) {
	cfg := Default()
	t.Setenv("HUBSYNC_HUB_PING_INTERVAL", "often")

	applyEnvOverrides(cfg)

	if cfg.Hub.PingInterval != 30 {
		t.Errorf("Hub.PingInterval = %d, want default 30", cfg.Hub.PingInterval)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Hub.Reconnect.Policy != "fixed" || cfg.Hub.Reconnect.Interval != 5 {
		t.Errorf("default reconnect = %+v, want fixed 5s", cfg.Hub.Reconnect)
	}
	if cfg.Hub.Reconnect.MaxAttempts != 0 {
		t.Errorf("default MaxAttempts = %d, want 0 (unlimited)", cfg.Hub.Reconnect.MaxAttempts)
	}
	if cfg.Hub.PingInterval != 30 {
		t.Errorf("default PingInterval = %d, want 30", cfg.Hub.PingInterval)
	}
	if cfg.Pairing.MaxOfferAge != 0 {
		t.Errorf("default MaxOfferAge = %d, want 0 (disabled)", cfg.Pairing.MaxOfferAge)
	}
	if cfg.Database.Path == "" {
		t.Error("Default should have non-empty Database.Path")
	}
	if cfg.Cloud.Broker.Port != 1883 {
		t.Errorf("default Cloud.Broker.Port = %d, want 1883", cfg.Cloud.Broker.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("default API.Host = %q, want loopback", cfg.API.Host)
	}
}
