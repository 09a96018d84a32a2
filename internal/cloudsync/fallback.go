// Package cloudsync forwards order traffic to the restaurant's cloud
// broker while the hub cannot be reached.
//
// Fallback satisfies hubclient.OfflineHandler. Each submission is
// published once as a regular protocol envelope at the configured QoS;
// the cloud side is the system of record for these orders and the hub
// picks them up from there.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/menuhub/hubsync/internal/infrastructure/logging"
	"github.com/menuhub/hubsync/internal/infrastructure/mqtt"
	"github.com/menuhub/hubsync/internal/protocol"
)

// ErrNoDevice is returned when neither the caller nor the fallback knows
// which device is submitting.
var ErrNoDevice = errors.New("cloudsync: device id unknown")

// Publisher is the subset of *mqtt.Client the fallback needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Options configures a Fallback.
type Options struct {
	RestaurantID string
	// DeviceID is used when a submission does not name a device.
	DeviceID string
	QoS      byte
	Now      func() time.Time
}

// Fallback publishes orders and updates to the cloud broker.
type Fallback struct {
	pub      Publisher
	topics   mqtt.Topics
	deviceID string
	qos      byte
	now      func() time.Time
	logger   *logging.Logger
}

// New creates a Fallback publishing through pub.
func New(pub Publisher, opts Options, logger *logging.Logger) *Fallback {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Fallback{
		pub:      pub,
		topics:   mqtt.Topics{Restaurant: opts.RestaurantID},
		deviceID: opts.DeviceID,
		qos:      opts.QoS,
		now:      opts.Now,
		logger:   logger.With("component", "cloudsync"),
	}
}

// SubmitOrder publishes a new_order envelope to the device's order topic.
func (f *Fallback) SubmitOrder(ctx context.Context, deviceID string, order protocol.NewOrder) error {
	deviceID, err := f.device(deviceID)
	if err != nil {
		return err
	}
	return f.publish(ctx, f.topics.OrdersNew(deviceID), protocol.TypeNewOrder, order)
}

// SubmitUpdate publishes an order_update envelope to the device's update
// topic.
func (f *Fallback) SubmitUpdate(ctx context.Context, deviceID string, update protocol.OrderUpdate) error {
	deviceID, err := f.device(deviceID)
	if err != nil {
		return err
	}
	return f.publish(ctx, f.topics.OrdersUpdate(deviceID), protocol.TypeOrderUpdate, update)
}

func (f *Fallback) device(deviceID string) (string, error) {
	if deviceID != "" {
		return deviceID, nil
	}
	if f.deviceID != "" {
		return f.deviceID, nil
	}
	return "", ErrNoDevice
}

func (f *Fallback) publish(ctx context.Context, topic string, t protocol.Type, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := protocol.New(t, payload, f.now())
	if err != nil {
		return err
	}
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := f.pub.Publish(topic, frame, f.qos, false); err != nil {
		return fmt.Errorf("publishing %s to cloud: %w", t, err)
	}
	f.logger.Debug("forwarded to cloud", "type", string(t), "topic", topic)
	return nil
}
