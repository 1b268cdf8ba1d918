// Package mqttbridge connects the dispatch engine to MQTT.
//
// Outbound, every device state change is published retained on
// {prefix}/state/{kind}/{id}, so a subscriber joining late sees the current
// level of every zone, button and shade. Inbound, text on {prefix}/command
// is executed like a UDP datagram and any response is published on
// {prefix}/response.
//
// Publishing happens on a single goroutine behind a bounded queue; the
// engine's listener never waits on the broker.
package mqttbridge
