package device

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultSeedYAML is the Orient House integration dataset compiled into the binary.
//
//go:embed seed/devices.yaml
var defaultSeedYAML []byte

// SeedEntry is a single named device in a seed dataset.
type SeedEntry struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// Seed is the static device dataset the registry is built from.
//
// It carries no state: every zone and shade starts at 0 and
// every button starts inactive.
type Seed struct {
	Zones   []SeedEntry `yaml:"zones"`
	Buttons []SeedEntry `yaml:"buttons"`
	Shades  []SeedEntry `yaml:"shades"`
}

// DefaultSeed returns the embedded Orient House dataset.
func DefaultSeed() (Seed, error) {
	return ParseSeed(defaultSeedYAML)
}

// LoadSeed reads a seed dataset from a YAML file.
//
// The file uses the same shape as the embedded dataset:
//
//	zones:
//	  - id: 2707
//	    name: 'Lower Level\Stor 003\ZB-001'
//	buttons:
//	  - id: 2392
//	    name: 'Lower Level\Stor 003\ST-003.2 Button 1'
//	shades:
//	  - id: 8112
//	    name: 'Lower Level\Game Room\Solar Shades'
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("reading seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates a YAML seed dataset.
func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if err := s.Validate(); err != nil {
		return Seed{}, err
	}
	return s, nil
}

// Validate checks that ids are non-negative and unique within each kind.
// Ids may repeat across kinds.
func (s Seed) Validate() error {
	groups := []struct {
		kind    Kind
		entries []SeedEntry
	}{
		{KindZone, s.Zones},
		{KindButton, s.Buttons},
		{KindShade, s.Shades},
	}

	for _, g := range groups {
		seen := make(map[int]struct{}, len(g.entries))
		for _, e := range g.entries {
			if e.ID < 0 {
				return fmt.Errorf("%w: %s %d", ErrInvalidID, g.kind, e.ID)
			}
			if _, dup := seen[e.ID]; dup {
				return fmt.Errorf("%w: %s %d", ErrDuplicateID, g.kind, e.ID)
			}
			seen[e.ID] = struct{}{}
		}
	}
	return nil
}
