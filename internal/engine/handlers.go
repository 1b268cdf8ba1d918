package engine

import (
	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/protocol"
)

// handleZone clamps, writes if the zone is known, and always echoes the
// clamped level.
func (e *Engine) handleZone(cmd protocol.Command, res Result) Result {
	level := e.clamp(cmd)
	res.Clamped = int64(level) != cmd.Value

	var zone device.Zone
	known := false
	if cmd.Addressable() {
		zone, known = e.registry.SetZoneLevel(cmd.ID, level)
	}
	res.Known = known
	if known {
		e.diag.Info("zone set",
			"zone", zone.Name,
			"id", zone.ID,
			"percent", device.Percent(zone.Level),
			"level", zone.Level,
		)
		e.notify(zone.Change())
	} else {
		e.stats.unknownIDs.Add(1)
		e.diag.Warn("unknown zone id", "id", cmd.Ref)
	}

	res.Response = protocol.ZoneLevel(cmd.Ref, level)
	res.HasResponse = true
	return res
}

// handleButton toggles a known button and reports feedback only when the
// scene is now active. Unknown buttons are always acknowledged.
func (e *Engine) handleButton(cmd protocol.Command, res Result) Result {
	var button device.Button
	known := false
	if cmd.Addressable() {
		button, known = e.registry.PressButton(cmd.ID)
	}
	res.Known = known

	if !known {
		e.stats.unknownIDs.Add(1)
		e.diag.Warn("unknown button id", "id", cmd.Ref)
		res.Response = protocol.ButtonFeedback(cmd.Ref)
		res.HasResponse = true
		return res
	}

	state := "deactivated"
	if button.Active {
		state = "activated"
	}
	e.diag.Info("button toggled",
		"button", button.Name,
		"id", button.ID,
		"state", state,
		"active", button.Active,
	)
	e.notify(button.Change())

	if button.Active {
		res.Response = protocol.ButtonFeedback(cmd.Ref)
		res.HasResponse = true
	}
	return res
}

// handleShade mirrors handleZone for shade positions.
func (e *Engine) handleShade(cmd protocol.Command, res Result) Result {
	position := e.clamp(cmd)
	res.Clamped = int64(position) != cmd.Value

	var shade device.Shade
	known := false
	if cmd.Addressable() {
		shade, known = e.registry.SetShadePosition(cmd.ID, position)
	}
	res.Known = known
	if known {
		e.diag.Info("shade set",
			"shade", shade.Name,
			"id", shade.ID,
			"percent", device.Percent(shade.Position),
			"position", shade.Position,
		)
		e.notify(shade.Change())
	} else {
		e.stats.unknownIDs.Add(1)
		e.diag.Warn("unknown shade id", "id", cmd.Ref)
	}

	res.Response = protocol.ShadeLevel(cmd.Ref, position)
	res.HasResponse = true
	return res
}

func (e *Engine) clamp(cmd protocol.Command) int {
	v := device.Clamp(cmd.Value)
	if int64(v) != cmd.Value {
		e.stats.clamped.Add(1)
		e.diag.Info("value clamped",
			"kind", string(cmd.Kind),
			"id", cmd.Ref,
			"requested", cmd.Value,
			"clamped", v,
		)
	}
	return v
}
