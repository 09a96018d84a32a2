// Package mqtt connects a device to the restaurant's cloud broker.
//
// The broker is the fallback path for order traffic while the hub is
// unreachable, and it carries a retained presence message per device:
//
//	menuhub/<restaurant>/orders/new/<device>
//	menuhub/<restaurant>/orders/update/<device>
//	menuhub/<restaurant>/devices/<device>/status
//
// The status topic is set to online on every connect, to offline on a
// clean Close, and to offline by the broker's Last Will when the device
// drops off without closing.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.Cloud, mqtt.Presence{
//	    RestaurantID: desc.RestaurantID,
//	    DeviceID:     desc.DeviceID,
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{Restaurant: desc.RestaurantID}.OrdersNew(desc.DeviceID)
//	err = client.Publish(topic, payload, 1, false)
package mqtt
