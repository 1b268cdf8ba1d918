package mqttbridge

import (
	"time"

	"github.com/nerrad567/crestron-sim/internal/device"
)

// StateMessage is the retained payload on {prefix}/state/{kind}/{id}.
type StateMessage struct {
	Kind      device.Kind `json:"kind"`
	ID        int         `json:"id"`
	Name      string      `json:"name"`
	Value     int         `json:"value"`
	Percent   float64     `json:"percent"`
	Active    *bool       `json:"active,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewStateMessage converts a change. Active is only set for buttons.
func NewStateMessage(ch device.Change) StateMessage {
	msg := StateMessage{
		Kind:      ch.Kind,
		ID:        ch.ID,
		Name:      ch.Name,
		Value:     ch.Value,
		Percent:   ch.Percent(),
		Timestamp: ch.At.UTC(),
	}
	if ch.Kind == device.KindButton {
		active := ch.Active
		msg.Active = &active
	}
	return msg
}

// snapshot renders the current registry as change records, zones first.
func snapshot(reg *device.Registry, at time.Time) []device.Change {
	var out []device.Change
	for _, z := range reg.Zones() {
		out = append(out, z.Change())
	}
	for _, b := range reg.Buttons() {
		out = append(out, b.Change())
	}
	for _, s := range reg.Shades() {
		out = append(out, s.Change())
	}
	for i := range out {
		out[i].At = at
	}
	return out
}
