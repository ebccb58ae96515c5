package device

import (
	"context"
	"encoding/json"
)

// Type classifies a device.
type Type string

// Device types with a simulated implementation.
const (
	TypeSwitch  Type = "switch"
	TypeSpeaker Type = "speaker"
	TypeToilet  Type = "toilet"
)

// ValidTypes returns every device type New can build.
func ValidTypes() []Type {
	return []Type{TypeSwitch, TypeSpeaker, TypeToilet}
}

// Kind is a command kind. The set is open: a device may declare kinds
// beyond the built-in ones.
type Kind string

// Built-in command kinds.
const (
	KindSwitchOn  Kind = "switch_on"
	KindSwitchOff Kind = "switch_off"
	KindPlayTrack Kind = "play_track"
	KindFlush     Kind = "flush"
	KindClean     Kind = "clean"
)

// Payload holds optional command parameters.
type Payload map[string]any

// Track returns the payload for a play_track command.
func Track(name string) Payload {
	return Payload{"track": name}
}

// Clone returns an independent shallow copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	cpy := make(Payload, len(p))
	for k, v := range p {
		cpy[k] = v
	}
	return cpy
}

// State is a snapshot of a device's observable state, returned as the
// result of a handled command.
type State map[string]any

// Capability declares one command kind a device accepts.
// Schema is an optional JSON Schema document the payload must satisfy.
type Capability struct {
	Kind   Kind            `json:"kind"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// Device is an addressable actor that reacts to typed commands.
//
// Handle may suspend (e.g. simulated latency). It returns an
// *UnsupportedCommandError for kinds outside Capabilities, and an error
// wrapping ErrEffectFailed when a supported command could not be carried out.
type Device interface {
	Type() Type
	Capabilities() []Capability
	Handle(ctx context.Context, kind Kind, payload Payload) (State, error)
}

// FindCapability returns the capability declared for kind, if any.
func FindCapability(caps []Capability, kind Kind) (Capability, bool) {
	for _, c := range caps {
		if c.Kind == kind {
			return c, true
		}
	}
	return Capability{}, false
}

// Kinds returns the command kinds in a capability table.
func Kinds(caps []Capability) []Kind {
	kinds := make([]Kind, len(caps))
	for i, c := range caps {
		kinds[i] = c.Kind
	}
	return kinds
}

// Entry describes a registered device.
type Entry struct {
	ID           string `json:"id"`
	Type         Type   `json:"type"`
	Capabilities []Kind `json:"capabilities"`
}

// Stats holds registry statistics.
type Stats struct {
	Total  int          `json:"total"`
	ByType map[Type]int `json:"by_type"`
}

// trackSchema constrains play_track payloads.
var trackSchema = json.RawMessage(`{
	"type": "object",
	"required": ["track"],
	"properties": {
		"track": {"type": "string", "minLength": 1}
	}
}`)
