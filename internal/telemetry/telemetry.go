package telemetry

import (
	"strconv"
	"time"

	"github.com/nerrad567/dingz-bridge/internal/dingz"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

// Measurement names.
const (
	MeasurementSensor = "dingz_sensor"
	MeasurementMotor  = "dingz_motor"
	MeasurementDimmer = "dingz_dimmer"
	MeasurementPower  = "dingz_power"
)

// MetricWriter queues one point. Implementations must not block.
type MetricWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// StateSource is the State coordinator of a device.
type StateSource interface {
	AddListener(fn func(*dingz.State)) notify.Unsubscribe
}

// Sink converts device data into points.
//
// Thread Safety:
//   - Safe for concurrent use; it holds no mutable state.
type Sink struct {
	w   MetricWriter
	now func() time.Time
}

// New returns a Sink writing to w.
func New(w MetricWriter) *Sink {
	return &Sink{w: w, now: time.Now}
}

// AttachBus writes SensorState and MotorState notifications of device.
// Other kinds are ignored.
func (s *Sink) AttachBus(device string, subscribe func(func(notify.Notification)) notify.Unsubscribe) notify.Unsubscribe {
	return subscribe(func(n notify.Notification) {
		s.WriteNotification(device, n)
	})
}

// AttachState writes every snapshot of device.
func (s *Sink) AttachState(device string, src StateSource) notify.Unsubscribe {
	return src.AddListener(func(st *dingz.State) {
		s.WriteState(device, st)
	})
}

// WriteNotification writes one notification if it carries a measurement.
func (s *Sink) WriteNotification(device string, n notify.Notification) {
	ts := s.now()
	switch v := n.(type) {
	case notify.SensorState:
		s.w.WritePoint(MeasurementSensor,
			map[string]string{"device": device, "sensor": string(v.Sensor)},
			map[string]any{"value": v.Value}, ts)
	case notify.MotorState:
		s.w.WritePoint(MeasurementMotor,
			map[string]string{"device": device, "index": strconv.Itoa(v.Index)},
			map[string]any{"position": v.Position, "lamella": v.Lamella, "moving": v.Motion.String()}, ts)
	}
}

// WriteState writes the sensors, dimmer outputs and power outputs of a
// snapshot. Values missing from the payload are skipped.
func (s *Sink) WriteState(device string, st *dingz.State) {
	if st == nil {
		return
	}
	ts := s.now()

	if sens := st.Sensors; sens != nil {
		if sens.RoomTemperature != nil {
			s.w.WritePoint(MeasurementSensor,
				map[string]string{"device": device, "sensor": string(notify.SensorTemperature)},
				map[string]any{"value": *sens.RoomTemperature}, ts)
		}
		if sens.Brightness != nil {
			s.w.WritePoint(MeasurementSensor,
				map[string]string{"device": device, "sensor": string(notify.SensorLight)},
				map[string]any{"value": float64(*sens.Brightness)}, ts)
		}
		for i, p := range sens.PowerOutputs {
			if p.Value == nil {
				continue
			}
			s.w.WritePoint(MeasurementPower,
				map[string]string{"device": device, "index": strconv.Itoa(i)},
				map[string]any{"watts": *p.Value}, ts)
		}
	}

	for i, d := range st.Dimmers {
		fields := make(map[string]any, 2)
		if d.On != nil {
			fields["on"] = *d.On
		}
		if d.Output != nil {
			fields["output"] = *d.Output
		}
		if len(fields) == 0 {
			continue
		}
		s.w.WritePoint(MeasurementDimmer,
			map[string]string{"device": device, "index": strconv.Itoa(i)},
			fields, ts)
	}
}
