// Package device provides the Device Registry for the Crestron simulator.
//
// The registry holds the mutable state of every simulated load the control
// panel can address. There are three independent device kinds, each keyed by
// its integration id:
//
//   - Zone: a dimmable lighting circuit with a level in [0, 65535]
//   - Button: a scene/preset keypad button with an active (feedback) flag
//   - Shade: a motorised window covering with a position in [0, 65535]
//
// The key spaces are separate maps, so the same integer may legitimately
// identify a zone and a button at the same time.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                      Device Registry                       │
//	│                                                            │
//	│  ┌──────────────┐   ┌──────────────┐   ┌──────────────┐    │
//	│  │    Seed      │──▶│   Registry   │──▶│  Snapshots   │    │
//	│  │  (seed.go)   │   │(registry.go) │   │ (sorted copy)│    │
//	│  │ • YAML load  │   │ • zones map  │   └──────────────┘    │
//	│  │ • embedded   │   │ • buttons map│                       │
//	│  │   dataset    │   │ • shades map │                       │
//	│  └──────────────┘   └──────────────┘                       │
//	└────────────────────────────────────────────────────────────┘
//
// Ids are only ever created from the seed. Writes to an unknown id report
// "not known" and leave the registry untouched; the dispatch engine decides
// what that means for the protocol response.
//
// # Usage
//
//	seed, err := device.DefaultSeed()
//	if err != nil {
//	    return err
//	}
//	registry := device.NewRegistry(seed)
//
//	zone, known := registry.SetZoneLevel(2707, 99999999)
//	// zone.Level == 65535, known == true
//
// # Thread Safety
//
// Every Registry method is safe for concurrent use. Each mutating call is a
// single critical section, so a clamp-then-write can never interleave with
// another writer touching the same id.
package device
