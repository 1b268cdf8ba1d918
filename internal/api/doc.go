// Package api implements the read-only HTTP status API and WebSocket change
// stream for the simulator.
//
// This package provides:
//   - REST endpoints listing zones, buttons and shades with their current values
//   - Engine counters and the full device status snapshot
//   - The command journal, when it is enabled
//   - A WebSocket hub streaming device changes by kind or single device
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API sits beside the UDP listener and never feeds back into it. Reads
// go straight to the device registry; change events come from an engine
// subscription and are fanned out to WebSocket clients without blocking the
// command path.
//
// Every endpoint is GET. There is no authentication: the simulator is a
// development tool and binds to loopback by default.
package api
