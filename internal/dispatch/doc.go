// Package dispatch routes commands to registered devices.
//
// The Service is the single chokepoint between callers and devices: every
// command goes through Send, which resolves the target identity, checks the
// device's capability table, validates the payload, invokes the device and
// hands the outcome back unchanged. Send never retries and never swallows
// an error.
//
// # Outcomes
//
//	identity unknown          → device.ErrDeviceNotFound      (no device touched)
//	kind not in capabilities  → *device.UnsupportedCommandError (no effect)
//	payload fails its schema  → device.ErrInvalidPayload       (no effect)
//	device effect fails       → device.ErrEffectFailed (as returned by the device)
//	otherwise                 → the device's resulting State
//
// # Observers
//
// Observers receive an Event after every Send. They are side channels for
// telemetry and event fan-out (MQTT, InfluxDB, WebSocket) and cannot change
// the outcome. Observe is called synchronously, so implementations must not
// block.
//
// # Usage
//
//	svc := dispatch.NewService(device.NewRegistry(nil), nil)
//	svc.SetLogger(log)
//
//	id, _ := svc.RegisterDevice(device.NewSpeaker())
//	state, err := svc.Send(ctx, dispatch.NewMessage(id, device.KindPlayTrack,
//	    device.Track("Rick Astley - Never Gonna Give You Up")))
package dispatch
