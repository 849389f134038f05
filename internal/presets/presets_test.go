package presets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinCatalog(t *testing.T) {
	c := Builtin()
	want := []string{
		"collision-course", "same-orbit", "geo-sync", "polar-retrograde",
		"prograde-retrograde", "sun-synchronous", "molniya",
	}
	all := c.All()
	if len(all) != len(want) {
		t.Fatalf("got %d presets, want %d", len(all), len(want))
	}
	for i, name := range want {
		if all[i].Name != name {
			t.Errorf("preset %d = %q, want %q", i, all[i].Name, name)
		}
		if err := all[i].Validate(); err != nil {
			t.Errorf("builtin %q invalid: %v", name, err)
		}
		if all[i].Description == "" {
			t.Errorf("builtin %q has no description", name)
		}
	}
	if _, err := c.Lookup(DefaultName); err != nil {
		t.Fatalf("default preset missing: %v", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Builtin().Lookup("hohmann")
	if !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("err = %v, want ErrUnknownPreset", err)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	c := Builtin()
	all := c.All()
	all[0].Name = "mutated"
	if _, err := c.Lookup(DefaultName); err != nil {
		t.Fatal("mutating All() result changed the catalog")
	}
}

const overrides = `
presets:
  - name: molniya
    description: Tweaked Molniya
    sat1: {semi_major_axis: 26000000, eccentricity: 0.7, inclination: 1.1}
    sat2: {semi_major_axis: 7000000}
  - name: leo-pair
    description: Two LEO satellites
    sat1: {semi_major_axis: 6800000, inclination: 0.9}
    sat2: {semi_major_axis: 6800000, inclination: 0.9, mean_anomaly: 0.01}
`

func TestLoadFileMergesAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(overrides), 0o600); err != nil {
		t.Fatal(err)
	}

	c := Builtin()
	n, err := c.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded %d presets, want 2", n)
	}
	if c.Len() != 8 {
		t.Errorf("catalog has %d presets, want 8", c.Len())
	}

	m, err := c.Lookup("molniya")
	if err != nil {
		t.Fatal(err)
	}
	if m.Description != "Tweaked Molniya" || m.Sat1.SemiMajorAxis != 26000000 {
		t.Errorf("molniya not overridden: %+v", m)
	}
	// Overrides keep their catalog position.
	if all := c.All(); all[6].Name != "molniya" || all[7].Name != "leo-pair" {
		t.Errorf("order = %v", c.Names())
	}

	leo, err := c.Lookup("leo-pair")
	if err != nil {
		t.Fatal(err)
	}
	if leo.Sat2.MeanAnomaly != 0.01 {
		t.Errorf("leo-pair sat2 mean anomaly = %f", leo.Sat2.MeanAnomaly)
	}
}

func TestMergeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"open orbit", "presets:\n  - name: bad\n    sat1: {semi_major_axis: 7000000, eccentricity: 1.2}\n    sat2: {semi_major_axis: 7000000}\n", "eccentricity"},
		{"degenerate", "presets:\n  - name: bad\n    sat1: {semi_major_axis: 7000000}\n    sat2: {semi_major_axis: 0}\n", "semi-major axis"},
		{"unnamed", "presets:\n  - sat1: {semi_major_axis: 7000000}\n    sat2: {semi_major_axis: 7000000}\n", "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := Decode(strings.NewReader(tt.doc))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			c := Builtin()
			err = c.Merge(ps)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
			if c.Len() != 7 {
				t.Errorf("catalog changed after failed merge: %d presets", c.Len())
			}
		})
	}
}

func TestDecodeUnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader("presets:\n  - name: x\n    sat3: {}\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDecodeEmpty(t *testing.T) {
	ps, err := Decode(strings.NewReader(""))
	if err != nil || len(ps) != 0 {
		t.Fatalf("Decode(empty) = %v, %v", ps, err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := Builtin().LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
