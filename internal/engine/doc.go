// Package engine implements the simulator's command dispatch.
//
// The engine sits between the transport and the device registry:
//
//	Transport ──raw──▶ Engine.Handle ──▶ protocol.Parse ──▶ kind handler ──▶ Registry
//	    ▲                                                         │
//	    └────────────────── response (or none) ◀──────────────────┘
//
// # Response Rules
//
//   - Zone and shade: clamp to [0, 65535], write if the id is known, and
//     always answer with the clamped value.
//   - Button, known id: toggle. Answer /button/<id>/fb only when the new
//     state is active; a press that deactivates the scene is silent.
//   - Button, unknown id: nothing is created, but the press is always
//     acknowledged with /button/<id>/fb.
//   - Anything unparseable: no answer, no state change, a warning event.
//
// # Side Channels
//
// Diagnostics, change listeners (Subscribe) and the exchange Recorder observe
// the dispatch. None of them can alter a response: recorder errors and
// listener panics are reported through Diagnostics and otherwise ignored.
//
// # Thread Safety
//
// Engine methods are safe for concurrent use. Each command's registry write
// is one critical section inside the registry.
package engine
