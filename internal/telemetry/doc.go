// Package telemetry turns dingz notifications and state snapshots into
// time-series points.
//
// A Sink writes to a MetricWriter, which *influxdb.Client implements.
// Measurements:
//
//	dingz_sensor  tags device, sensor        field value
//	dingz_motor   tags device, index         fields position, lamella, moving
//	dingz_dimmer  tags device, index         fields on, output
//	dingz_power   tags device, index         field watts
//
// Sensor readings arrive both from push messages (AttachBus) and from each
// polled snapshot (AttachState); both are written.
package telemetry
