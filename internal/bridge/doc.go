// Package bridge accepts device commands over MQTT.
//
// The bridge subscribes to graylogic/command/+ and treats the last topic
// segment as the target device identity. Each message carries a kind and
// an optional payload:
//
//	graylogic/command/dev-000002
//	{"id":"c1","kind":"play_track","payload":{"track":"Never Gonna Give You Up"}}
//
// The command is routed through the dispatcher and the outcome is
// published on graylogic/ack/{device_id}:
//
//	{"command_id":"c1","device_id":"dev-000002","status":"ok","state":{...}}
//
// Failed commands carry an error object with a stable code. Commands are
// handled concurrently and bounded by the bridge context, so Stop waits
// for in-flight commands and cancels their device latency.
package bridge
