// Command orbitctl runs the orbit, intersection and collision computations
// offline against a preset or hand-entered elements.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/star/orbitalator/internal/orbit"
	"github.com/star/orbitalator/internal/presets"
)

type options struct {
	preset      string
	presetsFile string
	sat1, sat2  string
	verbose     bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "orbitctl:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "orbitctl",
		Short: "Offline orbit, intersection and collision calculations",
		Long: `
orbitctl evaluates the simulator's two-satellite scenario without a server.

Elements come from a preset (--preset) and may be overridden per satellite
with --sat1/--sat2 as comma-separated key=value pairs in SI units:

  a     semi-major axis, metres
  e     eccentricity
  i     inclination, radians
  raan  longitude of the ascending node, radians
  argp  argument of perigee, radians
  m     mean anomaly at epoch, radians

Examples:
  orbitctl predict --preset molniya
  orbitctl intersections --sat2 a=7000e3,i=1.2
  orbitctl tle iss.txt
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.preset, "preset", presets.DefaultName, "preset to start from")
	pf.StringVar(&opts.presetsFile, "presets-file", "", "YAML file adding to the built-in presets")
	pf.StringVar(&opts.sat1, "sat1", "", "element overrides for satellite 1, e.g. a=7000e3,e=0.01")
	pf.StringVar(&opts.sat2, "sat2", "", "element overrides for satellite 2")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level to stderr")

	root.AddCommand(
		newPositionCmd(opts),
		newPathCmd(opts),
		newIntersectionsCmd(opts),
		newPredictCmd(opts),
		newPresetsCmd(opts),
		newSurveyCmd(opts),
		newPassesCmd(opts),
		newTLECmd(opts),
	)
	return root
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *options) catalog() (*presets.Catalog, error) {
	c := presets.Builtin()
	if o.presetsFile != "" {
		if _, err := c.LoadFile(o.presetsFile); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// scenario resolves the preset and applies the per-satellite overrides.
func (o *options) scenario() (presets.Preset, error) {
	c, err := o.catalog()
	if err != nil {
		return presets.Preset{}, err
	}
	p, err := c.Lookup(o.preset)
	if err != nil {
		return presets.Preset{}, err
	}
	if p.Sat1, err = parseElements(o.sat1, p.Sat1); err != nil {
		return presets.Preset{}, fmt.Errorf("--sat1: %w", err)
	}
	if p.Sat2, err = parseElements(o.sat2, p.Sat2); err != nil {
		return presets.Preset{}, fmt.Errorf("--sat2: %w", err)
	}
	if o.sat1 != "" || o.sat2 != "" {
		p.Name = "custom"
	}
	return p, p.Validate()
}

// parseElements applies "key=value,..." overrides to base.
func parseElements(s string, base orbit.Elements) (orbit.Elements, error) {
	el := base
	if strings.TrimSpace(s) == "" {
		return el, nil
	}
	for _, kv := range strings.Split(s, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			return el, fmt.Errorf("%q is not key=value", kv)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return el, fmt.Errorf("%s: %w", key, err)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "a":
			el.SemiMajorAxis = f
		case "e":
			el.Eccentricity = f
		case "i":
			el.Inclination = f
		case "raan":
			el.LonAscendingNode = f
		case "argp":
			el.ArgPerigee = f
		case "m":
			el.MeanAnomaly = f
		default:
			return el, fmt.Errorf("unknown element %q", key)
		}
	}
	return el, nil
}

func satElements(p presets.Preset, sat int) (orbit.Elements, error) {
	switch sat {
	case 1:
		return p.Sat1, nil
	case 2:
		return p.Sat2, nil
	}
	return orbit.Elements{}, fmt.Errorf("--sat must be 1 or 2, got %d", sat)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
