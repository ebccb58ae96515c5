package dispatch

import (
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
)

// Outcome labels used in events, telemetry tags and API responses.
const (
	OutcomeOK             = "ok"
	OutcomeNotFound       = "not_found"
	OutcomeUnsupported    = "unsupported"
	OutcomeInvalidPayload = "invalid_payload"
	OutcomeInvalidMessage = "invalid_message"
	OutcomeFailed         = "failed"
	OutcomeError          = "error"
)

// Event describes one completed Send.
type Event struct {
	Target     string        `json:"target"`
	DeviceType device.Type   `json:"device_type,omitempty"`
	Kind       device.Kind   `json:"kind"`
	State      device.State  `json:"state,omitempty"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"duration"`
	At         time.Time     `json:"at"`
}

// Outcome classifies the event's error.
func (e Event) Outcome() string {
	return Classify(e.Err)
}

// Classify maps a Send error to an outcome label.
func Classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, device.ErrDeviceNotFound):
		return OutcomeNotFound
	case errors.Is(err, device.ErrUnsupportedCommand):
		return OutcomeUnsupported
	case errors.Is(err, device.ErrInvalidPayload):
		return OutcomeInvalidPayload
	case errors.Is(err, ErrInvalidMessage):
		return OutcomeInvalidMessage
	case errors.Is(err, device.ErrEffectFailed):
		return OutcomeFailed
	default:
		return OutcomeError
	}
}

// Observer receives dispatch events. Observe must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f.
func (f ObserverFunc) Observe(e Event) { f(e) }
