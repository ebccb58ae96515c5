// Package mqtt provides the MQTT client used by Gray Logic Dispatch.
//
// It wraps paho.mqtt.golang with:
//   - auto-reconnect with subscriptions restored on every reconnect
//   - a retained online/offline status with a Last Will for crashes
//   - panic recovery around message handlers
//   - topic builders for the command, ack, state and event topics
//
// The broker is either an external Mosquitto or the embedded broker in
// internal/infrastructure/broker.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
package mqtt
