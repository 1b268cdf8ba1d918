package device

import (
	"fmt"
	"math"
	"time"
)

// Analog value bounds shared by zone levels and shade positions.
const (
	// MinLevel is the lowest analog value (off / fully closed).
	MinLevel = 0

	// MaxLevel is the highest analog value (full brightness / fully open).
	MaxLevel = 65535
)

// Kind identifies one of the three device key spaces.
type Kind string

// Device kinds.
const (
	KindZone   Kind = "zone"
	KindButton Kind = "button"
	KindShade  Kind = "shade"
)

// AllKinds lists every device kind in protocol match order.
var AllKinds = []Kind{KindZone, KindButton, KindShade}

// ParseKind converts a string to a Kind.
// Returns ErrInvalidKind for anything other than zone, button or shade.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindZone, KindButton, KindShade:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Zone is a dimmable circuit.
type Zone struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// Button is a scene or preset control point.
// Active reports whether the scene is currently announcing feedback.
type Button struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Shade is a motorised window covering.
// Position 0 is closed, MaxLevel is fully open.
type Shade struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Change describes a state transition applied to a known device.
//
// Value carries the zone level or shade position; Active carries the new
// button state. Only the field relevant to Kind is meaningful.
type Change struct {
	Kind   Kind      `json:"kind"`
	ID     int       `json:"id"`
	Name   string    `json:"name"`
	Value  int       `json:"value"`
	Active bool      `json:"active"`
	At     time.Time `json:"at"`
}

// Change returns the zone's current state as a change record.
func (z Zone) Change() Change {
	return Change{Kind: KindZone, ID: z.ID, Name: z.Name, Value: z.Level}
}

// Change returns the button's current state. Value is 1 while active.
func (b Button) Change() Change {
	ch := Change{Kind: KindButton, ID: b.ID, Name: b.Name, Active: b.Active}
	if b.Active {
		ch.Value = 1
	}
	return ch
}

// Change returns the shade's current state as a change record.
func (s Shade) Change() Change {
	return Change{Kind: KindShade, ID: s.ID, Name: s.Name, Value: s.Position}
}

// Percent returns the change's analog value as a percentage.
// Buttons report 100 when active and 0 otherwise.
func (c Change) Percent() float64 {
	if c.Kind == KindButton {
		if c.Active {
			return 100
		}
		return 0
	}
	return Percent(c.Value)
}

// Clamp saturates v to the closed interval [MinLevel, MaxLevel].
// Clamp is idempotent: Clamp(Clamp(v)) == Clamp(v).
func Clamp(v int64) int {
	switch {
	case v < MinLevel:
		return MinLevel
	case v > MaxLevel:
		return MaxLevel
	default:
		return int(v)
	}
}

// Percent converts an analog value to a percentage rounded to one decimal.
//
// Example: Percent(32768) == 50.0, Percent(65535) == 100.0
func Percent(v int) float64 {
	return math.Round(float64(v)/MaxLevel*1000) / 10 //nolint:mnd // one decimal place
}
