// Package broker runs an embedded MQTT broker inside the dispatch process.
//
// A site without Mosquitto can set mqtt.embedded.enabled and the paho
// client, the command bridge and any external tooling all connect to
// this broker instead. It is built on mochi-mqtt with the auth ledger
// hook and a session hook that logs client connects and disconnects.
//
// Connections from the loopback interface are always admitted. Remote
// clients must present the credentials in mqtt.auth when they are set;
// otherwise every client is admitted.
package broker
