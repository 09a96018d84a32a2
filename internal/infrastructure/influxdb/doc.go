// Package influxdb sends hub session telemetry to InfluxDB v2.
//
// It wraps influxdb-client-go with connection checking, default tags
// per device and non-blocking batched writes. The telemetry package
// decides what gets written; this package only moves points.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, map[string]string{
//	    "device_id": desc.DeviceID,
//	})
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WritePoint("hub_connection", tags, fields, time.Now())
//
// # Error Handling
//
// Connection and health check errors are returned directly. Write errors
// happen in the background and reach the SetOnError callback.
package influxdb
