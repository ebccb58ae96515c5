package device

import (
	"errors"
	"fmt"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when an identity was never issued by the registry.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDevice is returned when registering a nil device.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrUnsupportedCommand is returned when a device has no capability for a command kind.
	ErrUnsupportedCommand = errors.New("device: unsupported command")

	// ErrInvalidPayload is returned when a command payload is missing or malformed.
	ErrInvalidPayload = errors.New("device: invalid payload")

	// ErrEffectFailed is returned when a device could not carry out a supported command.
	ErrEffectFailed = errors.New("device: effect failed")

	// ErrIdentitiesExhausted is returned when the identity generator has no identities left.
	ErrIdentitiesExhausted = errors.New("device: identities exhausted")

	// ErrIdentityCollision is returned when a generated identity is already registered.
	ErrIdentityCollision = errors.New("device: identity collision")
)

// UnsupportedCommandError carries the device and kind of a rejected command.
// It matches ErrUnsupportedCommand under errors.Is.
//
// DeviceID is empty when the error comes straight from a device, which
// never knows its own identity; the dispatcher fills it in.
type UnsupportedCommandError struct {
	DeviceID   string
	DeviceType Type
	Kind       Kind
}

func (e *UnsupportedCommandError) Error() string {
	if e.DeviceID == "" {
		return fmt.Sprintf("device: %s does not support %q", e.DeviceType, e.Kind)
	}
	return fmt.Sprintf("device: %s %s does not support %q", e.DeviceType, e.DeviceID, e.Kind)
}

// Is reports whether target is ErrUnsupportedCommand.
func (e *UnsupportedCommandError) Is(target error) bool {
	return target == ErrUnsupportedCommand
}
