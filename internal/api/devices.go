package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/crestron-sim/internal/device"
)

// ZoneView is a zone with its level also rendered as a percentage.
type ZoneView struct {
	device.Zone
	Percent float64 `json:"percent"`
}

// ShadeView is a shade with its position also rendered as a percentage.
type ShadeView struct {
	device.Shade
	Percent float64 `json:"percent"`
}

// StatusResponse is the full device snapshot served by GET /api/v1/status.
type StatusResponse struct {
	Zones   []ZoneView      `json:"zones"`
	Buttons []device.Button `json:"buttons"`
	Shades  []ShadeView     `json:"shades"`
	Counts  device.Counts   `json:"counts"`
}

func zoneView(z device.Zone) ZoneView {
	return ZoneView{Zone: z, Percent: device.Percent(z.Level)}
}

func shadeView(s device.Shade) ShadeView {
	return ShadeView{Shade: s, Percent: device.Percent(s.Position)}
}

func zoneViews(zones []device.Zone) []ZoneView {
	out := make([]ZoneView, 0, len(zones))
	for _, z := range zones {
		out = append(out, zoneView(z))
	}
	return out
}

func shadeViews(shades []device.Shade) []ShadeView {
	out := make([]ShadeView, 0, len(shades))
	for _, s := range shades {
		out = append(out, shadeView(s))
	}
	return out
}

// handleStatus returns every device in one response.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Zones:   zoneViews(s.registry.Zones()),
		Buttons: s.registry.Buttons(),
		Shades:  shadeViews(s.registry.Shades()),
		Counts:  s.registry.Counts(),
	})
}

func (s *Server) handleListZones(w http.ResponseWriter, _ *http.Request) {
	zones := zoneViews(s.registry.Zones())
	writeJSON(w, http.StatusOK, map[string]any{
		"zones": zones,
		"count": len(zones),
	})
}

func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	z, found := s.registry.Zone(id)
	if !found {
		writeNotFound(w, "zone not found")
		return
	}
	writeJSON(w, http.StatusOK, zoneView(z))
}

func (s *Server) handleListButtons(w http.ResponseWriter, _ *http.Request) {
	buttons := s.registry.Buttons()
	writeJSON(w, http.StatusOK, map[string]any{
		"buttons": buttons,
		"count":   len(buttons),
	})
}

func (s *Server) handleGetButton(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	b, found := s.registry.Button(id)
	if !found {
		writeNotFound(w, "button not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleListShades(w http.ResponseWriter, _ *http.Request) {
	shades := shadeViews(s.registry.Shades())
	writeJSON(w, http.StatusOK, map[string]any{
		"shades": shades,
		"count":  len(shades),
	})
}

func (s *Server) handleGetShade(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}
	sh, found := s.registry.Shade(id)
	if !found {
		writeNotFound(w, "shade not found")
		return
	}
	writeJSON(w, http.StatusOK, shadeView(sh))
}

// deviceID parses the {id} URL parameter, writing a 400 when it is not a
// non-negative integer.
func deviceID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		writeBadRequest(w, "device id must be a non-negative integer")
		return 0, false
	}
	return id, true
}
