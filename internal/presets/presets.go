// Package presets holds the named two-satellite scenarios the service can
// load, plus an optional YAML file that adds to or overrides them.
package presets

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/star/orbitalator/internal/orbit"
)

// ErrUnknownPreset is returned when a preset name is not in the catalog.
var ErrUnknownPreset = errors.New("unknown preset")

// DefaultName is the preset loaded at startup when none is configured.
const DefaultName = "collision-course"

// Preset is a named pair of element sets.
type Preset struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Sat1        orbit.Elements `json:"sat1" yaml:"sat1"`
	Sat2        orbit.Elements `json:"sat2" yaml:"sat2"`
}

// Validate checks that both element sets describe closed, non-degenerate orbits.
func (p Preset) Validate() error {
	if p.Name == "" {
		return errors.New("preset name is empty")
	}
	for i, el := range []orbit.Elements{p.Sat1, p.Sat2} {
		if el.SemiMajorAxis <= 0 {
			return fmt.Errorf("preset %q sat%d: semi-major axis must be positive", p.Name, i+1)
		}
		if el.Eccentricity < 0 || el.Eccentricity >= 1 {
			return fmt.Errorf("preset %q sat%d: eccentricity %.4f outside [0, 1)", p.Name, i+1, el.Eccentricity)
		}
	}
	return nil
}

var builtin = []Preset{
	{
		Name:        "collision-course",
		Description: "Two satellites on intersecting orbits",
		Sat1:        orbit.Elements{SemiMajorAxis: 7000e3, Inclination: 0.5},
		Sat2:        orbit.Elements{SemiMajorAxis: 7000e3, Inclination: 0.8},
	},
	{
		Name:        "same-orbit",
		Description: "Two satellites in identical orbits with different phases",
		Sat1:        orbit.Elements{SemiMajorAxis: 8000e3, Eccentricity: 0.05, Inclination: 0.5},
		Sat2:        orbit.Elements{SemiMajorAxis: 8000e3, Eccentricity: 0.05, Inclination: 0.5, MeanAnomaly: 1.5},
	},
	{
		Name:        "geo-sync",
		Description: "Geostationary orbit vs low Earth orbit",
		Sat1:        orbit.Elements{SemiMajorAxis: 42164e3},
		Sat2:        orbit.Elements{SemiMajorAxis: 7500e3, Eccentricity: 0.01, Inclination: 0.8, LonAscendingNode: 0.2, ArgPerigee: 0.5, MeanAnomaly: 1},
	},
	{
		Name:        "polar-retrograde",
		Description: "Polar orbit vs retrograde equatorial orbit",
		Sat1:        orbit.Elements{SemiMajorAxis: 7200e3, Inclination: math.Pi / 2},
		Sat2:        orbit.Elements{SemiMajorAxis: 7200e3, Inclination: math.Pi * 0.75},
	},
	{
		Name:        "prograde-retrograde",
		Description: "Same orbit, opposite directions - clearly shows retrograde motion",
		Sat1:        orbit.Elements{SemiMajorAxis: 8000e3, Eccentricity: 0.1, Inclination: 0.3},
		Sat2:        orbit.Elements{SemiMajorAxis: 8000e3, Eccentricity: 0.1, Inclination: math.Pi - 0.3, LonAscendingNode: math.Pi, ArgPerigee: math.Pi},
	},
	{
		Name:        "sun-synchronous",
		Description: "Sun-synchronous orbit vs standard LEO",
		Sat1:        orbit.Elements{SemiMajorAxis: 7178e3, Eccentricity: 0.001, Inclination: 1.7279},
		Sat2:        orbit.Elements{SemiMajorAxis: 6771e3, Eccentricity: 0.0003, Inclination: 0.9, LonAscendingNode: 0.5, MeanAnomaly: 2},
	},
	{
		Name:        "molniya",
		Description: "Highly elliptical Molniya orbit vs circular LEO",
		Sat1:        orbit.Elements{SemiMajorAxis: 26600e3, Eccentricity: 0.74, Inclination: 1.1, ArgPerigee: math.Pi / 2},
		Sat2:        orbit.Elements{SemiMajorAxis: 6971e3, Inclination: 0.5, LonAscendingNode: 1},
	},
}

// Catalog is an ordered, name-indexed set of presets. It is not safe for
// concurrent mutation; build it at startup and treat it as read-only after.
type Catalog struct {
	presets []Preset
	index   map[string]int
}

// Builtin returns a catalog holding the built-in presets in display order.
func Builtin() *Catalog {
	c := &Catalog{index: make(map[string]int, len(builtin))}
	for _, p := range builtin {
		c.put(p)
	}
	return c
}

func (c *Catalog) put(p Preset) {
	if i, ok := c.index[p.Name]; ok {
		c.presets[i] = p
		return
	}
	c.index[p.Name] = len(c.presets)
	c.presets = append(c.presets, p)
}

// Lookup returns the preset with the given name.
func (c *Catalog) Lookup(name string) (Preset, error) {
	i, ok := c.index[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return c.presets[i], nil
}

// All returns a copy of the presets in catalog order.
func (c *Catalog) All() []Preset {
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// Names returns the preset names sorted alphabetically.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.presets))
	for _, p := range c.presets {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of presets.
func (c *Catalog) Len() int { return len(c.presets) }

// Merge validates ps and adds them to the catalog. A preset whose name is
// already present replaces the existing one in place. Nothing is merged if
// any preset is invalid.
func (c *Catalog) Merge(ps []Preset) error {
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, p := range ps {
		c.put(p)
	}
	return nil
}

type file struct {
	Presets []Preset `yaml:"presets"`
}

// Decode reads a YAML preset document from r.
func Decode(r io.Reader) ([]Preset, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding presets: %w", err)
	}
	return f.Presets, nil
}

// LoadFile merges the presets in the YAML file at path into c.
func (c *Catalog) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening presets file: %w", err)
	}
	defer f.Close()

	ps, err := Decode(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Merge(ps); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return len(ps), nil
}
