package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/crestron-sim/internal/device"
	"github.com/nerrad567/crestron-sim/internal/journal"
)

// handleListJournal returns recent exchanges, newest first.
//
// Query parameters: limit, offset, kind, id. id is ignored without kind.
func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeNotFound(w, "command journal is disabled")
		return
	}

	q := r.URL.Query()
	var filter journal.Filter

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}
	if v := q.Get("kind"); v != "" {
		kind, err := device.ParseKind(v)
		if err != nil {
			writeBadRequest(w, "kind must be zone, button or shade")
			return
		}
		filter.Kind = kind
	}
	if v := q.Get("id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "id must be a non-negative integer")
			return
		}
		filter.DeviceID = &n
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing journal failed", "error", err)
		writeInternalError(w, "failed to list journal")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
