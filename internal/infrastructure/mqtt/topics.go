package mqtt

import "fmt"

// TopicPrefix is the root of every hubsync topic.
const TopicPrefix = "menuhub"

// Topics builds the topic names used for one restaurant.
//
//	topics := mqtt.Topics{Restaurant: "rest_42"}
//	topics.OrdersNew("dev_1")
//	// Returns: "menuhub/rest_42/orders/new/dev_1"
type Topics struct {
	Restaurant string
}

// OrdersNew is where a device publishes orders it could not deliver to
// the hub.
//
// Example: menuhub/rest_42/orders/new/dev_1
func (t Topics) OrdersNew(deviceID string) string {
	return fmt.Sprintf("%s/%s/orders/new/%s", TopicPrefix, t.Restaurant, deviceID)
}

// OrdersUpdate is where a device publishes order updates it could not
// deliver to the hub.
//
// Example: menuhub/rest_42/orders/update/dev_1
func (t Topics) OrdersUpdate(deviceID string) string {
	return fmt.Sprintf("%s/%s/orders/update/%s", TopicPrefix, t.Restaurant, deviceID)
}

// DeviceStatus carries the retained online/offline presence of a device.
//
// Example: menuhub/rest_42/devices/dev_1/status
func (t Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/devices/%s/status", TopicPrefix, t.Restaurant, deviceID)
}

// AllOrders matches every order topic of the restaurant.
//
// Pattern: menuhub/rest_42/orders/#
func (t Topics) AllOrders() string {
	return fmt.Sprintf("%s/%s/orders/#", TopicPrefix, t.Restaurant)
}

// AllDeviceStatus matches the presence topic of every device.
//
// Pattern: menuhub/rest_42/devices/+/status
func (t Topics) AllDeviceStatus() string {
	return fmt.Sprintf("%s/%s/devices/+/status", TopicPrefix, t.Restaurant)
}
