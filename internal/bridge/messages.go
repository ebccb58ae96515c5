package bridge

import (
	"time"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
)

// CommandMessage is received on graylogic/command/{device_id}.
type CommandMessage struct {
	// ID correlates the command with its ack. Optional.
	ID string `json:"id,omitempty"`

	Kind    device.Kind    `json:"kind"`
	Payload device.Payload `json:"payload,omitempty"`

	// Source records where the command came from ("panel", "voice", ...).
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome reported in an ack.
type AckStatus string

const (
	AckOK          AckStatus = "ok"
	AckStatusError AckStatus = "error"
)

// AckMessage is published on graylogic/ack/{device_id}.
type AckMessage struct {
	CommandID string       `json:"command_id,omitempty"`
	DeviceID  string       `json:"device_id"`
	Kind      device.Kind  `json:"kind,omitempty"`
	Status    AckStatus    `json:"status"`
	State     device.State `json:"state,omitempty"`
	Error     *AckError    `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// AckError describes why a command failed.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes reported in AckError.
const (
	ErrCodeMalformed      = "MALFORMED_COMMAND"
	ErrCodeInvalidCommand = "INVALID_COMMAND"
	ErrCodeNotFound       = "DEVICE_NOT_FOUND"
	ErrCodeUnsupported    = "UNSUPPORTED_COMMAND"
	ErrCodeInvalidParams  = "INVALID_PARAMETERS"
	ErrCodeDeviceFailure  = "DEVICE_FAILURE"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeBridgeError    = "BRIDGE_ERROR"
)

// errorCode maps a dispatch outcome to an ack error code.
func errorCode(outcome string) string {
	switch outcome {
	case dispatch.OutcomeNotFound:
		return ErrCodeNotFound
	case dispatch.OutcomeUnsupported:
		return ErrCodeUnsupported
	case dispatch.OutcomeInvalidPayload:
		return ErrCodeInvalidParams
	case dispatch.OutcomeInvalidMessage:
		return ErrCodeInvalidCommand
	case dispatch.OutcomeFailed:
		return ErrCodeDeviceFailure
	default:
		return ErrCodeBridgeError
	}
}

func newAck(cmd CommandMessage, deviceID string, state device.State, err error) AckMessage {
	ack := AckMessage{
		CommandID: cmd.ID,
		DeviceID:  deviceID,
		Kind:      cmd.Kind,
		Status:    AckOK,
		State:     state,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		ack.Status = AckStatusError
		ack.State = nil
		ack.Error = &AckError{Code: errorCode(dispatch.Classify(err)), Message: err.Error()}
	}
	return ack
}
