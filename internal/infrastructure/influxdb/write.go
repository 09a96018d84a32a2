package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint queues one point. It is dropped silently when the client is
// closed.
//
// Parameters:
//   - measurement: e.g. "hub_connection"
//   - tags: Indexed, low-cardinality values such as hub_id or state
//   - fields: Values; at least one is required by InfluxDB
//   - at: Point timestamp
//
// Example:
//
//	client.WritePoint("hub_orders",
//	    map[string]string{"kind": "new_order", "direction": "inbound"},
//	    map[string]any{"count": 1},
//	    time.Now())
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
