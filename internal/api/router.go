package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/engine"
	"github.com/nerrad567/crestron-sim/internal/mqttbridge"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	r.Get(s.wsCfg.Path, s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/status", s.handleStatus)

		r.Get("/zones", s.handleListZones)
		r.Get("/zones/{id}", s.handleGetZone)

		r.Get("/buttons", s.handleListButtons)
		r.Get("/buttons/{id}", s.handleGetButton)

		r.Get("/shades", s.handleListShades)
		r.Get("/shades/{id}", s.handleGetShade)

		r.Get("/journal", s.handleListJournal)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "the status API is read-only")
	})

	return r
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version"`
	Site    SiteView      `json:"site"`
	Devices device.Counts `json:"devices"`
}

// SiteView names the simulated installation.
type SiteView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
		Site:    SiteView{ID: s.site.ID, Name: s.site.Name},
		Devices: s.registry.Counts(),
	})
}

// StatsResponse is the body of GET /api/v1/stats.
// MQTT is present only while the bridge runs.
type StatsResponse struct {
	Engine        engine.Stats      `json:"engine"`
	Devices       device.Counts     `json:"devices"`
	WebSocket     HubStats          `json:"websocket"`
	MQTT          *mqttbridge.Stats `json:"mqtt,omitempty"`
	UptimeSeconds float64           `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := StatsResponse{
		Engine:        s.engine.Stats(),
		Devices:       s.registry.Counts(),
		WebSocket:     s.hub.Stats(),
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
	if s.bridge != nil {
		bs := s.bridge.Stats()
		resp.MQTT = &bs
	}
	writeJSON(w, http.StatusOK, resp)
}
