package dispatch

import (
	"fmt"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
)

// Message is a command addressed to a device identity.
// Build it with NewMessage so the payload is not shared with the caller.
type Message struct {
	Target  string         `json:"target"`
	Kind    device.Kind    `json:"kind"`
	Payload device.Payload `json:"payload,omitempty"`
}

// NewMessage creates a message holding its own copy of payload.
func NewMessage(target string, kind device.Kind, payload device.Payload) Message {
	return Message{
		Target:  target,
		Kind:    kind,
		Payload: payload.Clone(),
	}
}

// Validate checks the message has a command kind.
// Target is not checked here: an empty target is simply an unknown identity.
func (m Message) Validate() error {
	if m.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidMessage)
	}
	return nil
}

// String returns a short description for logs.
func (m Message) String() string {
	return fmt.Sprintf("%s→%s", m.Kind, m.Target)
}
