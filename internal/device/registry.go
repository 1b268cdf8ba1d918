package device

import (
	"slices"
	"sync"
)

// Registry holds the live state of every seeded zone, button and shade.
//
// The three kinds live in separate maps. Entries are created once from the
// seed and never added or removed afterwards.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	zones   map[int]*Zone
	buttons map[int]*Button
	shades  map[int]*Shade
}

// Counts reports how many devices of each kind the registry holds.
type Counts struct {
	Zones   int `json:"zones"`
	Buttons int `json:"buttons"`
	Shades  int `json:"shades"`
}

// NewRegistry creates a registry populated from the seed.
// Zones and shades start at MinLevel, buttons start inactive.
func NewRegistry(seed Seed) *Registry {
	r := &Registry{
		zones:   make(map[int]*Zone, len(seed.Zones)),
		buttons: make(map[int]*Button, len(seed.Buttons)),
		shades:  make(map[int]*Shade, len(seed.Shades)),
	}

	for _, e := range seed.Zones {
		r.zones[e.ID] = &Zone{ID: e.ID, Name: e.Name, Level: MinLevel}
	}
	for _, e := range seed.Buttons {
		r.buttons[e.ID] = &Button{ID: e.ID, Name: e.Name}
	}
	for _, e := range seed.Shades {
		r.shades[e.ID] = &Shade{ID: e.ID, Name: e.Name, Position: MinLevel}
	}

	return r
}

// SetZoneLevel stores the clamped level for a known zone.
//
// Returns the zone after the write and true if the id is known. For an
// unknown id nothing is stored and the returned Zone carries only the id
// and the clamped level.
func (r *Registry) SetZoneLevel(id int, level int) (Zone, bool) {
	clamped := Clamp(int64(level))

	r.mu.Lock()
	defer r.mu.Unlock()

	z, ok := r.zones[id]
	if !ok {
		return Zone{ID: id, Level: clamped}, false
	}
	z.Level = clamped
	return *z, true
}

// SetShadePosition stores the clamped position for a known shade.
//
// Semantics match SetZoneLevel.
func (r *Registry) SetShadePosition(id int, position int) (Shade, bool) {
	clamped := Clamp(int64(position))

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shades[id]
	if !ok {
		return Shade{ID: id, Position: clamped}, false
	}
	s.Position = clamped
	return *s, true
}

// PressButton flips the active flag of a known button.
//
// Returns the button after the toggle and true if the id is known.
// Unknown ids are not created.
func (r *Registry) PressButton(id int) (Button, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buttons[id]
	if !ok {
		return Button{ID: id}, false
	}
	b.Active = !b.Active
	return *b, true
}

// Zone returns a copy of the zone with the given id.
func (r *Registry) Zone(id int) (Zone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	z, ok := r.zones[id]
	if !ok {
		return Zone{}, false
	}
	return *z, true
}

// Button returns a copy of the button with the given id.
func (r *Registry) Button(id int) (Button, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buttons[id]
	if !ok {
		return Button{}, false
	}
	return *b, true
}

// Shade returns a copy of the shade with the given id.
func (r *Registry) Shade(id int) (Shade, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shades[id]
	if !ok {
		return Shade{}, false
	}
	return *s, true
}

// Zones returns a snapshot of all zones sorted by id.
// The returned values are copies; callers can safely modify them.
func (r *Registry) Zones() []Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Zone, 0, len(r.zones))
	for _, z := range r.zones {
		out = append(out, *z)
	}
	slices.SortFunc(out, func(a, b Zone) int { return a.ID - b.ID })
	return out
}

// Buttons returns a snapshot of all buttons sorted by id.
func (r *Registry) Buttons() []Button {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Button, 0, len(r.buttons))
	for _, b := range r.buttons {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b Button) int { return a.ID - b.ID })
	return out
}

// Shades returns a snapshot of all shades sorted by id.
func (r *Registry) Shades() []Shade {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Shade, 0, len(r.shades))
	for _, s := range r.shades {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Shade) int { return a.ID - b.ID })
	return out
}

// Counts returns the number of devices of each kind.
func (r *Registry) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Counts{
		Zones:   len(r.zones),
		Buttons: len(r.buttons),
		Shades:  len(r.shades),
	}
}
