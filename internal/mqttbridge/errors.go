package mqttbridge

import "errors"

var (
	// ErrNoEngine is returned by New without an engine.
	ErrNoEngine = errors.New("mqttbridge: engine is required")

	// ErrNoClient is returned by New without an MQTT client.
	ErrNoClient = errors.New("mqttbridge: MQTT client is required")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("mqttbridge: already started")
)
