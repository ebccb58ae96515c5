package dispatch

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/mqtt"
)

// Publisher is the subset of the MQTT client used to publish events.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// statePayload is the retained state message for a device.
type statePayload struct {
	DeviceID  string         `json:"device_id"`
	Kind      string         `json:"kind"`
	State     map[string]any `json:"state"`
	Timestamp string         `json:"timestamp"`
}

// eventPayload is the per-dispatch event message.
type eventPayload struct {
	DeviceID   string  `json:"device_id"`
	DeviceType string  `json:"device_type,omitempty"`
	Kind       string  `json:"kind"`
	Outcome    string  `json:"outcome"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Timestamp  string  `json:"timestamp"`
}

// publishQueueSize bounds the events waiting for the broker.
const publishQueueSize = 256

// MQTTPublisher publishes every dispatch outcome over MQTT.
//
// Successful sends update the retained device state topic; every send,
// successful or not, is announced on the dispatched event topic.
// Events are published in the order they were observed by a single
// worker goroutine, so Send is never held up by the broker and the
// retained state always ends on the latest value.
type MQTTPublisher struct {
	client Publisher
	logger Logger
	topics mqtt.Topics

	mu     sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

// NewMQTTPublisher creates an observer publishing through client and
// starts its worker. Call Close to stop it.
func NewMQTTPublisher(client Publisher, logger Logger) *MQTTPublisher {
	if logger == nil {
		logger = noopLogger{}
	}
	p := &MQTTPublisher{
		client: client,
		logger: logger,
		queue:  make(chan Event, publishQueueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Observe implements Observer. Events arriving while the queue is full
// or after Close are dropped.
func (p *MQTTPublisher) Observe(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- e:
	default:
		p.logger.Warn("publish queue full, dropping dispatch event", "device_id", e.Target, "kind", e.Kind)
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (p *MQTTPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
}

func (p *MQTTPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		p.publish(e)
	}
}

func (p *MQTTPublisher) publish(e Event) {
	ts := e.At.UTC().Format(time.RFC3339Nano)

	if e.Err == nil {
		body, err := json.Marshal(statePayload{
			DeviceID:  e.Target,
			Kind:      string(e.Kind),
			State:     e.State,
			Timestamp: ts,
		})
		if err == nil {
			err = p.client.Publish(p.topics.CoreDeviceState(e.Target), body, 1, true)
		}
		if err != nil {
			p.logger.Warn("publishing device state", "device_id", e.Target, "error", err)
		}
	}

	evt := eventPayload{
		DeviceID:   e.Target,
		DeviceType: string(e.DeviceType),
		Kind:       string(e.Kind),
		Outcome:    e.Outcome(),
		DurationMS: float64(e.Duration.Microseconds()) / 1000,
		Timestamp:  ts,
	}
	if e.Err != nil {
		evt.Error = e.Err.Error()
	}
	body, err := json.Marshal(evt)
	if err == nil {
		err = p.client.Publish(p.topics.CoreEvent("device_dispatched"), body, 0, false)
	}
	if err != nil {
		p.logger.Warn("publishing dispatch event", "device_id", e.Target, "error", err)
	}
}
