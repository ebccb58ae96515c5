package influxdb

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
)

// MeasurementDispatch is the measurement name for dispatch points.
const MeasurementDispatch = "dispatch"

// PointWriter accepts points for asynchronous writing.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// DispatchRecorder writes one point per dispatch event.
type DispatchRecorder struct {
	w PointWriter
}

// NewDispatchRecorder creates an observer writing to w.
func NewDispatchRecorder(w PointWriter) *DispatchRecorder {
	return &DispatchRecorder{w: w}
}

// Observe implements dispatch.Observer.
func (r *DispatchRecorder) Observe(e dispatch.Event) {
	r.w.WritePoint(dispatchPoint(e))
}

func dispatchPoint(e dispatch.Event) *write.Point {
	tags := map[string]string{
		"device_id": e.Target,
		"kind":      string(e.Kind),
		"outcome":   e.Outcome(),
	}
	if e.DeviceType != "" {
		tags["device_type"] = string(e.DeviceType)
	}

	return write.NewPoint(MeasurementDispatch, tags, map[string]any{
		"duration_ms": float64(e.Duration.Microseconds()) / 1000,
		"success":     e.Err == nil,
	}, e.At)
}
