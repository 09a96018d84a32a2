package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/menuhub/hubsync/internal/infrastructure/config"
)

// Connection constants.
const (
	defaultConnectTimeout = 10 * time.Second

	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is in milliseconds.
	defaultDisconnectQuiesce = 1000

	defaultKeepAlive = 60 * time.Second

	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// Presence statuses published on the device status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Presence identifies the device whose status the client maintains.
type Presence struct {
	RestaurantID string
	DeviceID     string
}

func (p Presence) topic() string {
	return Topics{Restaurant: p.RestaurantID}.DeviceStatus(p.DeviceID)
}

// clientID derives a per-device client id so several devices can share
// one broker account.
func clientID(cfg config.CloudConfig, p Presence) string {
	if p.DeviceID == "" {
		return cfg.Broker.ClientID
	}
	return fmt.Sprintf("%s-%s", cfg.Broker.ClientID, p.DeviceID)
}

// buildClientOptions creates paho options from the cloud config.
//
// This configures:
//   - Broker URL (tcp:// or ssl://)
//   - Per-device client id
//   - Credentials when a username is set
//   - Auto-reconnect between the configured delays
func buildClientOptions(cfg config.CloudConfig, p Presence) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(clientID(cfg, p))

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// QoS 1 publishes made while offline survive a reconnect only with a
	// persistent session.
	opts.SetCleanSession(false)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// configureLWT makes the broker mark the device offline if the client
// vanishes without a clean Close.
//
// Topic: menuhub/<restaurant>/devices/<device>/status
// QoS: 1, retained
func configureLWT(opts *pahomqtt.ClientOptions, p Presence, now time.Time) {
	if p.DeviceID == "" {
		return
	}
	payload := presencePayload(p.DeviceID, StatusOffline, "unexpected_disconnect", now)
	opts.SetBinaryWill(p.topic(), payload, 1, true)
}

type presenceMessage struct {
	Status    string `json:"status"`
	DeviceID  string `json:"deviceId"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func presencePayload(deviceID, status, reason string, now time.Time) []byte {
	data, _ := json.Marshal(presenceMessage{ //nolint:errcheck // Plain strings always marshal
		Status:    status,
		DeviceID:  deviceID,
		Reason:    reason,
		Timestamp: now.UTC().Format(time.RFC3339),
	})
	return data
}
