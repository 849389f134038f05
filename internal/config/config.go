// Package config loads service configuration from defaults, an optional
// config file and ORBITALATOR_* environment variables.
//
// Invalid values are logged and replaced by their defaults rather than
// failing startup. The only hard error is enabling auth without a token.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/star/orbitalator/internal/auth"
	"github.com/star/orbitalator/internal/cache"
	"github.com/star/orbitalator/internal/conjunction"
	"github.com/star/orbitalator/internal/observability"
	"github.com/star/orbitalator/internal/presets"
	"github.com/star/orbitalator/internal/sim"
	"github.com/star/orbitalator/internal/stream"
	"github.com/star/orbitalator/internal/tle"
)

// EnvPrefix is prepended to every environment variable, e.g. ORBITALATOR_HTTP_ADDR.
const EnvPrefix = "ORBITALATOR"

// Config is the fully resolved service configuration.
type Config struct {
	HTTPAddr    string
	LogLevel    slog.Level
	Auth        auth.Config
	Sim         SimConfig
	Predictor   conjunction.Predictor
	Cache       cache.Config
	Stream      stream.Config
	TLE         TLEConfig
	Tracing     observability.TracingConfig
	PresetsFile string
	Workers     int
}

// SimConfig configures the simulation clock and loop.
type SimConfig struct {
	Speed       float64
	Tick        time.Duration
	CheckWindow float64
	Preset      string
}

// EngineConfig returns the engine settings for the simulation loop.
func (s SimConfig) EngineConfig() sim.EngineConfig {
	return sim.EngineConfig{Tick: s.Tick, CheckWindow: s.CheckWindow}
}

// TLEConfig configures TLE imports.
type TLEConfig struct {
	EnableFetch bool
	SourceURL   string
	MaxBytes    int64
}

func setDefaults(v *viper.Viper) {
	pred := conjunction.DefaultPredictor()
	cc := cache.DefaultConfig()
	tr := observability.DefaultTracingConfig()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token", "")
	v.SetDefault("sim.speed", sim.DefaultSpeed)
	v.SetDefault("sim.tick", 50*time.Millisecond)
	v.SetDefault("sim.check_window", 60.0)
	v.SetDefault("sim.preset", presets.DefaultName)
	v.SetDefault("predict.threshold", pred.Threshold)
	v.SetDefault("predict.wide_threshold", pred.WideThreshold)
	v.SetDefault("predict.time_window", pred.TimeWindow)
	v.SetDefault("predict.sample_points", pred.SamplePoints)
	v.SetDefault("predict.approach_samples", pred.ApproachSamples)
	v.SetDefault("cache.capacity", cc.Capacity)
	v.SetDefault("cache.idle_ttl", cc.IdleTTL)
	v.SetDefault("cache.sweep_interval", cc.SweepInterval)
	v.SetDefault("survey.workers", runtime.NumCPU())
	v.SetDefault("stream.max_concurrent_per_ip", 10)
	v.SetDefault("stream.max_concurrent", 1000)
	v.SetDefault("stream.messages_per_second", 20.0)
	v.SetDefault("stream.keepalive_interval", 30*time.Second)
	v.SetDefault("stream.trust_proxy", false)
	v.SetDefault("tle.enable_fetch", true)
	v.SetDefault("tle.source_url", tle.DefaultSourceURL)
	v.SetDefault("tle.max_bytes", tle.DefaultMaxBytes)
	v.SetDefault("presets.file", "")
	v.SetDefault("tracing.enabled", tr.Enabled)
	v.SetDefault("tracing.service_name", tr.ServiceName)
	v.SetDefault("tracing.exporter", tr.Exporter)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", tr.SampleRatio)
}

// Load resolves the configuration. path names an optional TOML or YAML file;
// empty falls back to $ORBITALATOR_CONFIG, and no file at all is fine.
func Load(path string, logger *slog.Logger) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		logger.Info("config file loaded", "path", v.ConfigFileUsed())
	}

	defaults := viper.New()
	setDefaults(defaults)
	l := loader{v: v, defaults: defaults, logger: logger}
	cfg := Config{
		HTTPAddr:    v.GetString("http.addr"),
		LogLevel:    l.level("log.level"),
		PresetsFile: v.GetString("presets.file"),
		Workers:     l.positiveInt("survey.workers"),
	}

	cfg.Auth = auth.Config{
		Enabled: v.GetBool("auth.enabled"),
		Token:   v.GetString("auth.token"),
	}
	if cfg.Auth.Enabled && cfg.Auth.Token == "" {
		return Config{}, errors.New("auth.token (ORBITALATOR_AUTH_TOKEN) is required when auth is enabled")
	}

	cfg.Sim = SimConfig{
		Speed:       l.positiveFloat("sim.speed"),
		Tick:        l.positiveDuration("sim.tick"),
		CheckWindow: l.positiveFloat("sim.check_window"),
		Preset:      v.GetString("sim.preset"),
	}

	cfg.Predictor = conjunction.DefaultPredictor()
	cfg.Predictor.Threshold = l.positiveFloat("predict.threshold")
	cfg.Predictor.WideThreshold = l.positiveFloat("predict.wide_threshold")
	cfg.Predictor.TimeWindow = l.positiveFloat("predict.time_window")
	cfg.Predictor.SamplePoints = l.positiveInt("predict.sample_points")
	cfg.Predictor.ApproachSamples = l.positiveInt("predict.approach_samples")

	cfg.Cache = cache.Config{
		Capacity:      l.positiveInt("cache.capacity"),
		SamplePoints:  cfg.Predictor.SamplePoints,
		IdleTTL:       l.positiveDuration("cache.idle_ttl"),
		SweepInterval: l.positiveDuration("cache.sweep_interval"),
	}

	cfg.Stream = stream.Config{
		MaxConcurrentPerIP: l.positiveInt("stream.max_concurrent_per_ip"),
		MaxConcurrent:      l.positiveInt("stream.max_concurrent"),
		MessagesPerSecond:  l.positiveFloat("stream.messages_per_second"),
		KeepaliveInterval:  l.positiveDuration("stream.keepalive_interval"),
		TrustProxy:         v.GetBool("stream.trust_proxy"),
	}

	cfg.TLE = TLEConfig{
		EnableFetch: v.GetBool("tle.enable_fetch"),
		SourceURL:   v.GetString("tle.source_url"),
		MaxBytes:    int64(l.positiveInt("tle.max_bytes")),
	}
	if !strings.Contains(cfg.TLE.SourceURL, "%d") {
		logger.Warn("tle.source_url has no %d verb for the catalog number, using default",
			"value", cfg.TLE.SourceURL, "default", tle.DefaultSourceURL)
		cfg.TLE.SourceURL = tle.DefaultSourceURL
	}

	cfg.Tracing = observability.TracingConfig{
		Enabled:     v.GetBool("tracing.enabled"),
		ServiceName: v.GetString("tracing.service_name"),
		Exporter:    strings.ToLower(v.GetString("tracing.exporter")),
		Endpoint:    v.GetString("tracing.endpoint"),
		SampleRatio: l.ratio("tracing.sample_ratio"),
	}

	return cfg, nil
}

// LogAttrs returns the resolved settings as slog attributes for a startup line.
func (c Config) LogAttrs() []any {
	return []any{
		"http_addr", c.HTTPAddr,
		"log_level", c.LogLevel.String(),
		"auth_enabled", c.Auth.Enabled,
		"sim_speed", c.Sim.Speed,
		"sim_tick_ms", c.Sim.Tick.Milliseconds(),
		"sim_preset", c.Sim.Preset,
		"predict_threshold_m", c.Predictor.Threshold,
		"predict_time_window_s", c.Predictor.TimeWindow,
		"survey_workers", c.Workers,
		"stream_max_concurrent_per_ip", c.Stream.MaxConcurrentPerIP,
		"stream_trust_proxy", c.Stream.TrustProxy,
		"tle_fetch_enabled", c.TLE.EnableFetch,
		"tracing_enabled", c.Tracing.Enabled,
	}
}

// loader reads typed values and falls back to the registered default with a
// warning when a value is out of range or unparseable.
type loader struct {
	v        *viper.Viper
	defaults *viper.Viper
	logger   *slog.Logger
}

func (l loader) warn(key string, value, def any) {
	l.logger.Warn("invalid config value, using default",
		"key", key,
		"env", EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")),
		"value", value,
		"default", def,
	)
}

func (l loader) positiveInt(key string) int {
	def := l.defaults.GetInt(key)
	n := l.v.GetInt(key)
	if n < 1 {
		l.warn(key, l.v.Get(key), def)
		return def
	}
	return n
}

func (l loader) positiveFloat(key string) float64 {
	def := l.defaults.GetFloat64(key)
	f := l.v.GetFloat64(key)
	if !(f > 0) {
		l.warn(key, l.v.Get(key), def)
		return def
	}
	return f
}

func (l loader) positiveDuration(key string) time.Duration {
	def := l.defaults.GetDuration(key)
	d := l.v.GetDuration(key)
	if d <= 0 {
		l.warn(key, l.v.Get(key), def)
		return def
	}
	return d
}

func (l loader) ratio(key string) float64 {
	f := l.v.GetFloat64(key)
	if f < 0 || f > 1 {
		l.warn(key, l.v.Get(key), 1.0)
		return 1
	}
	return f
}

func (l loader) level(key string) slog.Level {
	var lvl slog.Level
	raw := l.v.GetString(key)
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		l.warn(key, raw, "info")
		return slog.LevelInfo
	}
	return lvl
}
