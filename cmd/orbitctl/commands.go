package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/orbitalator/internal/cache"
	"github.com/star/orbitalator/internal/conjunction"
	"github.com/star/orbitalator/internal/geodesy"
	"github.com/star/orbitalator/internal/orbit"
	"github.com/star/orbitalator/internal/passes"
	"github.com/star/orbitalator/internal/sim"
	"github.com/star/orbitalator/internal/survey"
	"github.com/star/orbitalator/internal/tle"
)

func newPositionCmd(opts *options) *cobra.Command {
	var sat int
	var t float64
	var epoch string
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Position and velocity of one satellite at simulated time t",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.scenario()
			if err != nil {
				return err
			}
			el, err := satElements(p, sat)
			if err != nil {
				return err
			}
			t0, err := time.Parse(time.RFC3339, epoch)
			if err != nil {
				return fmt.Errorf("--epoch: %w", err)
			}
			at := t0.Add(time.Duration(t * float64(time.Second)))
			pos := orbit.Current(el, t)
			return printJSON(cmd, map[string]any{
				"sat":       sat,
				"time":      t,
				"at":        at,
				"elements":  el,
				"position":  pos,
				"velocity":  orbit.VelocityAt(el, t, el.MeanAnomaly),
				"sub_point": geodesy.SubPoint(pos, at),
				"sunlit":    geodesy.Sunlit(pos, at),
			})
		},
	}
	cmd.Flags().IntVar(&sat, "sat", 1, "satellite (1 or 2)")
	cmd.Flags().Float64VarP(&t, "time", "t", 0, "simulated seconds since T+0")
	cmd.Flags().StringVar(&epoch, "epoch", "2000-01-01T12:00:00Z", "calendar time of T+0 (RFC 3339)")
	return cmd
}

func newPathCmd(opts *options) *cobra.Command {
	var sat, points int
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Sampled closed path of one satellite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if points < 1 {
				return fmt.Errorf("--points must be positive, got %d", points)
			}
			p, err := opts.scenario()
			if err != nil {
				return err
			}
			el, err := satElements(p, sat)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"sat":    sat,
				"period": el.Period(),
				"path":   orbit.SamplePath(el, points),
			})
		},
	}
	cmd.Flags().IntVar(&sat, "sat", 1, "satellite (1 or 2)")
	cmd.Flags().IntVar(&points, "points", orbit.DefaultPathPoints, "path segments")
	return cmd
}

func newIntersectionsCmd(opts *options) *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "intersections",
		Short: "Regions where the two orbital paths come within the threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.scenario()
			if err != nil {
				return err
			}
			points := conjunction.FindIntersections(p.Sat1, p.Sat2, threshold)
			if points == nil {
				points = []orbit.Position{}
			}
			return printJSON(cmd, map[string]any{
				"preset":        p.Name,
				"threshold":     threshold,
				"count":         len(points),
				"intersections": points,
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", conjunction.DefaultThreshold, "proximity threshold, metres")
	return cmd
}

func newPredictCmd(opts *options) *cobra.Command {
	var current, window float64
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Earliest predicted collision at or after --current",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.scenario()
			if err != nil {
				return err
			}
			start := time.Now()
			pred := conjunction.PredictCollision(p.Sat1, p.Sat2, window, current)
			opts.logger().Debug("prediction complete", "duration_ms", time.Since(start).Milliseconds())

			if pred == nil {
				return printJSON(cmd, map[string]any{"preset": p.Name, "will_collide": false})
			}
			return printJSON(cmd, map[string]any{
				"preset":     p.Name,
				"prediction": pred,
				"time_until": pred.TimeToCollision - current,
				"formatted":  sim.FormatElapsed(pred.TimeToCollision),
			})
		},
	}
	cmd.Flags().Float64Var(&current, "current", 0, "simulated seconds to predict from")
	cmd.Flags().Float64Var(&window, "window", conjunction.DefaultTimeWindow, "collision time window, seconds")
	return cmd
}

func newPresetsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the preset catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.catalog()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSAT1\tSAT2\tDESCRIPTION")
			for _, p := range c.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, p.Sat1, p.Sat2, p.Description)
			}
			return tw.Flush()
		},
	}
}

func newSurveyCmd(opts *options) *cobra.Command {
	var workers int
	var current float64
	cmd := &cobra.Command{
		Use:   "survey",
		Short: "Predict every preset concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.catalog()
			if err != nil {
				return err
			}
			logger := opts.logger()
			predictor := conjunction.DefaultPredictor()
			cc := cache.DefaultConfig()
			cc.SamplePoints = predictor.SamplePoints
			runner := survey.NewRunner(workers, predictor, cache.NewPathCache(cc, logger), logger)

			results := runner.Run(cmd.Context(), c.All(), current)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRESET\tREGIONS\tCOLLISION\tAT\tMS")
			for _, r := range results {
				at := "-"
				switch {
				case r.Error != "":
					at = r.Error
				case r.Prediction != nil:
					at = sim.FormatElapsed(r.Prediction.TimeToCollision)
				}
				fmt.Fprintf(tw, "%s\t%d\t%v\t%s\t%.1f\n", r.Preset, r.Intersections, r.Prediction != nil, at, r.DurationMs)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "worker goroutines")
	cmd.Flags().Float64Var(&current, "current", 0, "simulated seconds to predict from")
	return cmd
}

func newPassesCmd(opts *options) *cobra.Command {
	var (
		observer  geodesy.Geodetic
		start     float64
		hours     float64
		minElev   float64
		maxPasses int
		epoch     string
	)
	cmd := &cobra.Command{
		Use:   "passes",
		Short: "Passes of both satellites over a ground observer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if observer.LatDeg < -90 || observer.LatDeg > 90 || observer.LonDeg < -180 || observer.LonDeg > 180 {
				return fmt.Errorf("observer %.4f, %.4f is not a valid position", observer.LatDeg, observer.LonDeg)
			}
			if hours <= 0 {
				return fmt.Errorf("--hours must be positive, got %v", hours)
			}
			if maxPasses < 1 {
				return fmt.Errorf("--max-passes must be positive, got %d", maxPasses)
			}
			p, err := opts.scenario()
			if err != nil {
				return err
			}
			t0, err := time.Parse(time.RFC3339, epoch)
			if err != nil {
				return fmt.Errorf("--epoch: %w", err)
			}

			results := passes.Predict(cmd.Context(), passes.Request{
				Observer:     observer,
				Targets:      []passes.Target{{ID: 1, Elements: p.Sat1}, {ID: 2, Elements: p.Sat2}},
				Epoch:        t0,
				Start:        start,
				Horizon:      hours * 3600,
				MinElevation: minElev,
				MaxPasses:    maxPasses,
			})

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SAT\tRISE\tAT\tDURATION\tMAX EL\tAZ")
			for _, r := range results {
				if r.Error != "" {
					fmt.Fprintf(tw, "%d\t%s\t\t\t\t\n", r.ID, r.Error)
					continue
				}
				for _, ev := range r.Passes {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%.0fs\t%.1f\t%.0f\n",
						r.ID, sim.FormatElapsed(ev.StartTime), ev.StartAt.Format(time.RFC3339),
						ev.DurationSeconds, ev.MaxElevation, ev.AzimuthAtMax)
				}
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.Float64Var(&observer.LatDeg, "lat", 0, "observer latitude, degrees")
	f.Float64Var(&observer.LonDeg, "lon", 0, "observer longitude, degrees")
	f.Float64Var(&observer.AltM, "alt", 0, "observer altitude, metres")
	f.Float64Var(&start, "start", 0, "simulated seconds to search from")
	f.Float64Var(&hours, "hours", 24, "hours to search")
	f.Float64Var(&minElev, "min-elevation", 0, "minimum elevation, degrees")
	f.IntVar(&maxPasses, "max-passes", 10, "passes to report per satellite")
	f.StringVar(&epoch, "epoch", "2000-01-01T12:00:00Z", "calendar time of T+0 (RFC 3339)")
	return cmd
}

func newTLECmd(opts *options) *cobra.Command {
	var noradID int
	var sourceURL string
	cmd := &cobra.Command{
		Use:   "tle [file|-]",
		Short: "Convert a TLE to Keplerian elements",
		Long: `Reads the first TLE from a file (or stdin with "-"), or fetches one by
catalog number with --norad, and prints the osculating elements at its epoch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()

			var entry tle.Entry
			var err error
			switch {
			case noradID > 0:
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				entry, err = tle.NewFetcher(sourceURL, 0, logger).Lookup(ctx, noradID)
			case len(args) == 1:
				var r io.Reader = cmd.InOrStdin()
				if args[0] != "-" {
					f, ferr := os.Open(args[0])
					if ferr != nil {
						return ferr
					}
					defer f.Close()
					r = f
				}
				entry, err = tle.ParseOne(r, logger)
			default:
				return fmt.Errorf("give a TLE file or --norad")
			}
			if err != nil {
				return err
			}

			imp, err := tle.ToElements(entry)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"import":  imp,
				"period":  imp.Elements.Period(),
				"apogee":  imp.Elements.Apogee(),
				"perigee": imp.Elements.Perigee(),
			})
		},
	}
	cmd.Flags().IntVar(&noradID, "norad", 0, "fetch this NORAD catalog number")
	cmd.Flags().StringVar(&sourceURL, "source-url", tle.DefaultSourceURL, "TLE source URL with a %d verb for the catalog number")
	return cmd
}
