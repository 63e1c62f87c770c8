package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apierrors "platereader/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	MIC     MICConfig     `yaml:"mic" envconfig:"MIC"`
	Grate   GrateConfig   `yaml:"grate" envconfig:"GRATE"`
	Evol    EvolConfig    `yaml:"evol" envconfig:"EVOL"`
	Workers int           `yaml:"workers" envconfig:"WORKERS"`
	OTel    OTelConfig    `yaml:"otel" envconfig:"OTEL"`
	Plot    PlotConfig    `yaml:"plot" envconfig:"PLOT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	FitTimeout      time.Duration   `yaml:"fit_timeout" envconfig:"FIT_TIMEOUT"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// MICConfig holds the dose-response analysis parameters.
type MICConfig struct {
	// MinimumOD is both the quality-gate OD range and the normalization anchor.
	MinimumOD      float64 `yaml:"minimum_od" envconfig:"MINIMUM_OD"`
	ODThreshold    float64 `yaml:"od_threshold" envconfig:"OD_THRESHOLD"`
	MaxEvaluations int     `yaml:"max_evaluations" envconfig:"MAX_EVALUATIONS"`
	// Stacked groups replicates across plates instead of per plate.
	Stacked     bool `yaml:"stacked" envconfig:"STACKED"`
	SkipFitting bool `yaml:"skip_fitting" envconfig:"SKIP_FITTING"`
}

// GrateConfig holds the growth-rate analysis parameters.
type GrateConfig struct {
	// MaximumOD trims readings at or above it before the fit.
	MaximumOD  float64       `yaml:"maximum_od" envconfig:"MAXIMUM_OD"`
	Window     time.Duration `yaml:"window" envconfig:"WINDOW"`
	TopMu      int           `yaml:"top_mu" envconfig:"TOP_MU"`
	MinPeriods int           `yaml:"min_periods" envconfig:"MIN_PERIODS"`
}

// EvolConfig holds the serial passage analysis parameters.
type EvolConfig struct {
	// Threshold is the OD600 at or above which a well grew.
	Threshold float64 `yaml:"threshold" envconfig:"THRESHOLD"`
}

// OTelConfig controls tracing and metrics.
type OTelConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// PlotConfig controls the optional figures.
type PlotConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Output  string `yaml:"output" envconfig:"OUTPUT"`
	Width   int    `yaml:"width" envconfig:"WIDTH"`
	Height  int    `yaml:"height" envconfig:"HEIGHT"`
}

// Load builds the configuration from defaults, then the YAML file at path
// (or the first one found in the usual locations when path is empty), then
// PRE_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apierrors.NewConfigError("failed to load config from file", err).WithContext("path", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apierrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, apierrors.NewConfigError("config validation failed", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate checks ranges and normalizes enumerations
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.FitTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if c.MIC.MinimumOD < 0 {
		return fmt.Errorf("mic.minimum_od must not be negative: %g", c.MIC.MinimumOD)
	}
	if c.MIC.ODThreshold <= 0 {
		return fmt.Errorf("mic.od_threshold must be positive: %g", c.MIC.ODThreshold)
	}
	if c.MIC.MaxEvaluations <= 0 {
		return fmt.Errorf("mic.max_evaluations must be positive: %d", c.MIC.MaxEvaluations)
	}

	if c.Grate.MaximumOD <= 0 {
		return fmt.Errorf("grate.maximum_od must be positive: %g", c.Grate.MaximumOD)
	}
	if c.Grate.Window <= 0 {
		return fmt.Errorf("grate.window must be positive: %s", c.Grate.Window)
	}
	if c.Grate.TopMu <= 0 {
		return fmt.Errorf("grate.top_mu must be positive: %d", c.Grate.TopMu)
	}
	if c.Grate.MinPeriods < 2 {
		return fmt.Errorf("grate.min_periods must be at least 2: %d", c.Grate.MinPeriods)
	}

	if c.Evol.Threshold <= 0 {
		return fmt.Errorf("evol.threshold must be positive: %g", c.Evol.Threshold)
	}

	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/pre.log"
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"pre.yaml",
		"configs/pre.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			FitTimeout:      DefaultFitTimeout,
			MaxBodyBytes:    DefaultMaxBodyBytes,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/pre.log",
		},
		MIC: MICConfig{
			MinimumOD:      DefaultMinimumOD,
			ODThreshold:    DefaultODThreshold,
			MaxEvaluations: DefaultMaxEvaluations,
		},
		Grate: GrateConfig{
			MaximumOD:  DefaultMaximumOD,
			Window:     DefaultWindow,
			TopMu:      DefaultTopMu,
			MinPeriods: DefaultMinPeriods,
		},
		Evol: EvolConfig{
			Threshold: DefaultGrowthThreshold,
		},
		Workers: runtime.NumCPU(),
		OTel: OTelConfig{
			ServiceName:    AppName,
			MetricsEnabled: true,
		},
		Plot: PlotConfig{
			Output: ".",
			Width:  640,
			Height: 480,
		},
	}
}
