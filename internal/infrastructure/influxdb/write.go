package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/crestron-sim/internal/device"
)

// MeasurementDeviceLevel holds one point per device state change.
const MeasurementDeviceLevel = "device_level"

// WriteChange records a device state change.
//
// Tags are kind, id and name; fields are value (raw 0..65535, or 0/1 for
// buttons), percent and, for buttons, active. A zero At is stamped now.
func (c *Client) WriteChange(ch device.Change) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(changePoint(ch))
}

func changePoint(ch device.Change) *write.Point {
	at := ch.At
	if at.IsZero() {
		at = time.Now()
	}

	fields := map[string]any{
		"value":   int64(ch.Value),
		"percent": ch.Percent(),
	}
	if ch.Kind == device.KindButton {
		fields["active"] = ch.Active
	}

	return write.NewPoint(
		MeasurementDeviceLevel,
		map[string]string{
			"kind": string(ch.Kind),
			"id":   strconv.Itoa(ch.ID),
			"name": ch.Name,
		},
		fields,
		at,
	)
}
