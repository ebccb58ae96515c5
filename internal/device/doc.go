// Package device provides the Device Registry and the simulated devices
// for Gray Logic Dispatch.
//
// A device is anything that can receive a typed command and produce a
// side effect: a light, a speaker, a toilet. Every device declares a
// closed capability table at construction; a command whose kind is not in
// that table is rejected before any effect happens.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                        Device Registry                          │
//	│                                                                 │
//	│  ┌──────────────────┐   ┌──────────────────┐   ┌─────────────┐  │
//	│  │     Registry     │   │ IdentityGenerator│   │   Device    │  │
//	│  │  (registry.go)   │──▶│  (identity.go)   │   │(simulated.go│  │
//	│  │                  │   │                  │   │  journal.go)│  │
//	│  │ • Register       │   │ • UUID (default) │   │ • Switch    │  │
//	│  │ • Resolve        │   │ • Sequence       │   │ • Speaker   │  │
//	│  │ • RWMutex map    │   │                  │   │ • Toilet    │  │
//	│  └──────────────────┘   └──────────────────┘   └─────────────┘  │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Device: the capability abstraction (Type, Capabilities, Handle)
//   - Kind: a command kind (switch_on, play_track, flush, ...)
//   - Payload: optional command parameters
//   - State: snapshot of the device's observable state after an effect
//   - Registry: identity to device map, the only shared structure
//
// # Usage
//
//	registry := device.NewRegistry(nil) // UUID identities
//	registry.SetLogger(log)
//
//	light, _ := device.New(device.TypeSwitch, device.WithName("hue_light"))
//	id, err := registry.Register(light)
//	if err != nil {
//	    return err
//	}
//
//	dev, err := registry.Resolve(id)
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // unknown identity
//	}
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Registrations are serialised by
// a write lock; lookups share a read lock. Simulated devices guard their
// own state and may be commanded concurrently.
package device
