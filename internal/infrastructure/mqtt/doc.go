// Package mqtt connects the simulator to an MQTT broker.
//
// Device state is mirrored onto retained topics and raw protocol commands
// can be injected over MQTT as an alternative to UDP:
//
//	crestronsim/state/{kind}/{id}   retained JSON device state
//	crestronsim/command             text commands, e.g. /zone/2707/65535
//	crestronsim/response            the engine's response, if any
//	crestronsim/system/status       online/offline, with LWT
//
// The connection is optional. Connect fails fast when no broker is
// reachable; once connected, paho reconnects with backoff and the client
// restores its subscriptions.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.PublishJSON(client.Topics().State("zone", 2707), state, true)
package mqtt
