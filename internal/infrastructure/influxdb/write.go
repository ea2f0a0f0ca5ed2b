package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint queues one point. A zero ts means now. Points written after
// Close are dropped.
//
// Parameters:
//   - measurement: The measurement name, e.g. "dingz_sensor"
//   - tags: Indexed, low-cardinality labels such as device and index
//   - fields: The values
//   - ts: Time of the reading
//
// Example:
//
//	client.WritePoint("dingz_sensor",
//	    map[string]string{"device": "hallway", "sensor": "temperature"},
//	    map[string]any{"value": 21.5},
//	    time.Now())
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
