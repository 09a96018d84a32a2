package identity

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/menuhub/hubsync/internal/protocol"
)

// Storage keys.
const (
	KeyDeviceID     = "hubsync.device_id"
	KeyDeviceName   = "hubsync.device_name"
	KeyDeviceRole   = "hubsync.device_role"
	KeyRestaurantID = "hubsync.restaurant_id"
	KeyLastSyncAt   = "hubsync.last_sync_at"
)

// Defaults used when nothing was configured.
const (
	DefaultDeviceName = "Staff Device"
	DefaultDeviceRole = "staff"
)

// Descriptor identifies this device to a hub.
type Descriptor struct {
	DeviceID     string `json:"deviceId"`
	DeviceName   string `json:"deviceName"`
	DeviceRole   string `json:"deviceRole"`
	RestaurantID string `json:"restaurantId"`
}

// Info is a partial descriptor update. Empty fields are left unchanged.
type Info struct {
	DeviceName   string `json:"deviceName,omitempty"`
	DeviceRole   string `json:"deviceRole,omitempty"`
	RestaurantID string `json:"restaurantId,omitempty"`
}

// Manager reads and writes the device descriptor.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Manager struct {
	store DurableStore
	now   func() time.Time

	mu       sync.Mutex
	deviceID string
}

// NewManager creates a Manager. A nil now uses time.Now.
func NewManager(store DurableStore, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: store, now: now}
}

// DeviceID returns the stored device id, generating and persisting one
// on first use. Later calls never write.
func (m *Manager) DeviceID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deviceID != "" {
		return m.deviceID, nil
	}

	id, ok, err := m.store.Get(ctx, KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("loading device id: %w", err)
	}
	if !ok || id == "" {
		id = protocol.NewID("device", m.now())
		if err := m.store.Set(ctx, KeyDeviceID, id); err != nil {
			return "", fmt.Errorf("persisting device id: %w", err)
		}
	}
	m.deviceID = id
	return id, nil
}

// SetInfo persists every non-empty field of info. Fields are written one
// at a time; a failure leaves earlier fields updated.
func (m *Manager) SetInfo(ctx context.Context, info Info) error {
	updates := []struct{ key, value string }{
		{KeyDeviceName, info.DeviceName},
		{KeyDeviceRole, info.DeviceRole},
		{KeyRestaurantID, info.RestaurantID},
	}
	for _, u := range updates {
		if u.value == "" {
			continue
		}
		if err := m.store.Set(ctx, u.key, u.value); err != nil {
			return fmt.Errorf("saving device info: %w", err)
		}
	}
	return nil
}

// Descriptor returns the full descriptor, creating the device id if needed.
func (m *Manager) Descriptor(ctx context.Context) (Descriptor, error) {
	id, err := m.DeviceID(ctx)
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{DeviceID: id}
	fields := []struct {
		key string
		dst *string
		def string
	}{
		{KeyDeviceName, &d.DeviceName, DefaultDeviceName},
		{KeyDeviceRole, &d.DeviceRole, DefaultDeviceRole},
		{KeyRestaurantID, &d.RestaurantID, ""},
	}
	for _, f := range fields {
		v, ok, err := m.store.Get(ctx, f.key)
		if err != nil {
			return Descriptor{}, fmt.Errorf("loading device info: %w", err)
		}
		if !ok || v == "" {
			v = f.def
		}
		*f.dst = v
	}
	return d, nil
}

// RestaurantID returns the configured restaurant, "" if unset.
func (m *Manager) RestaurantID(ctx context.Context) (string, error) {
	v, _, err := m.store.Get(ctx, KeyRestaurantID)
	if err != nil {
		return "", fmt.Errorf("loading restaurant id: %w", err)
	}
	return v, nil
}

// LastSyncAt returns when the last sync response was received, zero if never.
func (m *Manager) LastSyncAt(ctx context.Context) (time.Time, error) {
	v, ok, err := m.store.Get(ctx, KeyLastSyncAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading sync cursor: %w", err)
	}
	if !ok {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, nil //nolint:nilerr // A corrupt cursor means resync everything
	}
	return time.UnixMilli(ms), nil
}

// SetLastSyncAt records the sync cursor.
func (m *Manager) SetLastSyncAt(ctx context.Context, t time.Time) error {
	if err := m.store.Set(ctx, KeyLastSyncAt, strconv.FormatInt(t.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("saving sync cursor: %w", err)
	}
	return nil
}
