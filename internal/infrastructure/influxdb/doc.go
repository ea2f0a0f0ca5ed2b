// Package influxdb writes dingz telemetry to InfluxDB 2.x through the
// official influxdb-client-go v2 library.
//
// Writes use the non-blocking, batched write API; batch size and flush
// interval come from the influxdb section of the configuration. Write
// failures are reported asynchronously through SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePoint("dingz_sensor",
//	    map[string]string{"device": "hallway", "sensor": "temperature"},
//	    map[string]any{"value": 21.5}, time.Now())
//
// *Client satisfies telemetry.MetricWriter.
package influxdb
