package device

import (
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Registry maps identities to devices.
//
// Identities are minted at registration and never reassigned or removed,
// so a resolved device stays valid for the lifetime of the registry.
//
// All public methods are thread-safe.
type Registry struct {
	ids     IdentityGenerator
	devices map[string]Device
	mu      sync.RWMutex // Protects devices
	logger  Logger
}

// NewRegistry creates an empty registry. A nil generator selects UUID identities.
func NewRegistry(ids IdentityGenerator) *Registry {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Registry{
		ids:     ids,
		devices: make(map[string]Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register takes ownership of dev and returns its freshly minted identity.
//
// Returns ErrInvalidDevice for a nil device, ErrIdentitiesExhausted when the
// generator has run out, and ErrIdentityCollision if the generator repeats
// an identity already in use. No identity is ever assigned twice.
func (r *Registry) Register(dev Device) (string, error) {
	if dev == nil {
		return "", ErrInvalidDevice
	}

	id, err := r.ids.Next()
	if err != nil {
		return "", fmt.Errorf("allocating identity: %w", err)
	}

	r.mu.Lock()
	if _, exists := r.devices[id]; exists {
		r.mu.Unlock()
		r.logger.Error("identity collision", "device_id", id)
		return "", fmt.Errorf("%w: %s", ErrIdentityCollision, id)
	}
	r.devices[id] = dev
	total := len(r.devices)
	r.mu.Unlock()

	r.logger.Info("device registered",
		"device_id", id,
		"type", dev.Type(),
		"total", total,
	)
	return id, nil
}

// Resolve returns the device registered under id.
// Returns ErrDeviceNotFound for an identity that was never issued.
func (r *Registry) Resolve(id string) (Device, error) {
	r.mu.RLock()
	dev, ok := r.devices[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return dev, nil
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// List returns every registered device sorted by identity.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.devices))
	for id, dev := range r.devices {
		entries = append(entries, Entry{
			ID:           id,
			Type:         dev.Type(),
			Capabilities: Kinds(dev.Capabilities()),
		})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// Stats returns device counts by type.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.devices), ByType: make(map[Type]int)}
	for _, dev := range r.devices {
		stats.ByType[dev.Type()]++
	}
	return stats
}
