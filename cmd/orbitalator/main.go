package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/orbitalator/internal/api"
	"github.com/star/orbitalator/internal/cache"
	"github.com/star/orbitalator/internal/config"
	"github.com/star/orbitalator/internal/observability"
	"github.com/star/orbitalator/internal/orbit"
	"github.com/star/orbitalator/internal/presets"
	"github.com/star/orbitalator/internal/sim"
	"github.com/star/orbitalator/internal/stream"
	"github.com/star/orbitalator/internal/survey"
	"github.com/star/orbitalator/internal/tle"
	"github.com/star/orbitalator/web"
)

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:           "orbitalator",
		Short:         "Two-satellite orbit, intersection and collision simulator",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (TOML or YAML), default $ORBITALATOR_CONFIG")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "orbitalator:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}
	level.Set(cfg.LogLevel)
	logger.Info("config loaded", cfg.LogAttrs()...)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Tracing.Writer = os.Stderr
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("initialising tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	catalog := presets.Builtin()
	if cfg.PresetsFile != "" {
		n, err := catalog.LoadFile(cfg.PresetsFile)
		if err != nil {
			return err
		}
		logger.Info("presets file loaded", "path", cfg.PresetsFile, "count", n, "total", catalog.Len())
	}
	initial, err := catalog.Lookup(cfg.Sim.Preset)
	if err != nil {
		return fmt.Errorf("sim.preset: %w", err)
	}

	paths := cache.NewPathCache(cfg.Cache, logger)
	var orbits []orbit.Elements
	for _, p := range catalog.All() {
		orbits = append(orbits, p.Sat1, p.Sat2)
	}
	paths.Warm(ctx, orbits)
	go paths.Start(ctx)

	scenario := sim.NewScenario(cfg.Predictor, paths, logger)
	if err := scenario.Load(ctx, initial); err != nil {
		return err
	}

	engineCfg := cfg.Sim.EngineConfig()
	engineCfg.Epoch = time.Now().UTC().Truncate(time.Second)
	engine := sim.NewEngine(sim.NewClock(cfg.Sim.Speed), scenario, engineCfg, logger)
	go engine.Run(ctx)

	var fetcher *tle.Fetcher
	if cfg.TLE.EnableFetch {
		fetcher = tle.NewFetcher(cfg.TLE.SourceURL, cfg.TLE.MaxBytes, logger)
	}

	srv := api.NewServer(cfg.HTTPAddr, logger, cfg.Auth, api.Deps{
		Engine:  engine,
		Presets: catalog,
		Paths:   paths,
		Survey:  survey.NewRunner(cfg.Workers, cfg.Predictor, paths, logger),
		Stream:  stream.NewHandler(engine, cfg.Stream, logger),
		Fetcher: fetcher,
		Web:     web.Content,
	})

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr, "auth_enabled", cfg.Auth.Enabled, "tle_fetch_enabled", cfg.TLE.EnableFetch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		logger.Error("server listen error", "error", err)
		return err
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}
