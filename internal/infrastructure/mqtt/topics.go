package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
const (
	// TopicPrefix is the root of every Gray Logic topic.
	TopicPrefix = "graylogic"

	// TopicPrefixCore is the base for state and events published by dispatch.
	TopicPrefixCore = "graylogic/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for Gray Logic MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Command("3f0c...") // graylogic/command/3f0c...
type Topics struct{}

// Command returns the topic on which a command for one device is received.
//
// Example: graylogic/command/dev-000001
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// Ack returns the topic on which the outcome of a command is reported.
//
// Example: graylogic/ack/dev-000001
func (Topics) Ack(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, deviceID)
}

// CoreDeviceState returns the retained device state topic.
//
// Example: graylogic/core/device/dev-000001/state
func (Topics) CoreDeviceState(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefixCore, deviceID)
}

// CoreEvent returns the topic for system events.
//
// Example: graylogic/core/event/device_dispatched
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// SystemStatus returns the online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllCommands matches every device command topic.
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// AllAcks matches every command acknowledgement topic.
func (Topics) AllAcks() string {
	return TopicPrefix + "/ack/+"
}

// AllCoreDeviceStates matches every retained device state.
func (Topics) AllCoreDeviceStates() string {
	return TopicPrefixCore + "/device/+/state"
}

// AllCoreEvents matches every core event.
func (Topics) AllCoreEvents() string {
	return TopicPrefixCore + "/event/+"
}

// DeviceIDFromTopic extracts the trailing device ID from a command or
// ack topic. It returns "" when the topic has no device segment.
func (Topics) DeviceIDFromTopic(topic string) string {
	i := strings.LastIndexByte(topic, '/')
	if i < 0 {
		return ""
	}
	return topic[i+1:]
}
