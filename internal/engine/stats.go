package engine

import "sync/atomic"

// Stats is a snapshot of the engine's counters since start.
type Stats struct {
	Received     uint64 `json:"received"`
	Responded    uint64 `json:"responded"`
	Silent       uint64 `json:"silent"`
	Unrecognised uint64 `json:"unrecognised"`
	UnknownIDs   uint64 `json:"unknown_ids"`
	Clamped      uint64 `json:"clamped"`
}

type counters struct {
	received     atomic.Uint64
	responded    atomic.Uint64
	silent       atomic.Uint64
	unrecognised atomic.Uint64
	unknownIDs   atomic.Uint64
	clamped      atomic.Uint64
}

// Stats returns the current counter values.
// Individual fields are read atomically; the snapshot as a whole is not.
func (e *Engine) Stats() Stats {
	return Stats{
		Received:     e.stats.received.Load(),
		Responded:    e.stats.responded.Load(),
		Silent:       e.stats.silent.Load(),
		Unrecognised: e.stats.unrecognised.Load(),
		UnknownIDs:   e.stats.unknownIDs.Load(),
		Clamped:      e.stats.clamped.Load(),
	}
}
