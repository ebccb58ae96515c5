package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
	"github.com/nerrad567/gray-logic-dispatch/internal/device/schema"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service registers devices and routes commands to them.
//
// All public methods are thread-safe.
type Service struct {
	registry  *device.Registry
	validator *schema.Validator
	logger    Logger

	observers []Observer
	obsMu     sync.RWMutex
}

// NewService creates a dispatcher over registry. A nil validator gets a fresh one.
func NewService(registry *device.Registry, validator *schema.Validator) *Service {
	if validator == nil {
		validator = schema.NewValidator()
	}
	return &Service{
		registry:  registry,
		validator: validator,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// AddObserver subscribes o to every subsequent dispatch event.
func (s *Service) AddObserver(o Observer) {
	s.obsMu.Lock()
	s.observers = append(s.observers, o)
	s.obsMu.Unlock()
}

// Registry returns the underlying device registry.
func (s *Service) Registry() *device.Registry {
	return s.registry
}

// RegisterDevice admits dev into the registry and returns its identity.
func (s *Service) RegisterDevice(dev device.Device) (string, error) {
	return s.registry.Register(dev)
}

// Send delivers msg to its target and returns the device's resulting state.
//
// Errors from the device are returned exactly as the device produced them.
func (s *Service) Send(ctx context.Context, msg Message) (device.State, error) {
	start := time.Now()
	evt := Event{Target: msg.Target, Kind: msg.Kind, At: start}

	state, err := s.send(ctx, msg, &evt)

	evt.State = state
	evt.Err = err
	evt.Duration = time.Since(start)
	s.notify(evt)

	if err != nil {
		s.logger.Warn("dispatch failed",
			"device_id", msg.Target,
			"kind", msg.Kind,
			"outcome", evt.Outcome(),
			"error", err,
		)
		return nil, err
	}

	s.logger.Debug("dispatched",
		"device_id", msg.Target,
		"type", evt.DeviceType,
		"kind", msg.Kind,
		"duration", evt.Duration,
	)
	return state, nil
}

func (s *Service) send(ctx context.Context, msg Message, evt *Event) (device.State, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	dev, err := s.registry.Resolve(msg.Target)
	if err != nil {
		return nil, err
	}
	evt.DeviceType = dev.Type()

	capability, ok := device.FindCapability(dev.Capabilities(), msg.Kind)
	if !ok {
		return nil, &device.UnsupportedCommandError{
			DeviceID:   msg.Target,
			DeviceType: dev.Type(),
			Kind:       msg.Kind,
		}
	}

	if err := s.validator.Validate(capability.Schema, msg.Payload); err != nil {
		if errors.Is(err, schema.ErrInvalidSchema) {
			return nil, fmt.Errorf("capability %s of %s: %w", msg.Kind, dev.Type(), err)
		}
		return nil, fmt.Errorf("%w: %s for %s: %v", device.ErrInvalidPayload, msg.Kind, msg.Target, err)
	}

	return dev.Handle(ctx, msg.Kind, msg.Payload)
}

func (s *Service) notify(evt Event) {
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()

	for _, o := range observers {
		o.Observe(evt)
	}
}
