package config

import (
	"time"

	"platereader/internal/grate"
)

// Application constants
const (
	AppName    = "pre"
	AppVersion = "0.4.0"

	// EnvPrefix namespaces every environment variable (PRE_MIC_MINIMUM_OD, ...).
	EnvPrefix = "PRE"

	// MIC assay defaults
	DefaultMinimumOD      = 0.2
	DefaultODThreshold    = 0.2
	DefaultMaxEvaluations = 999999

	// Growth-rate defaults
	DefaultMaximumOD  = 0.6
	DefaultWindow     = grate.DefaultWindow
	DefaultTopMu      = grate.DefaultTopK
	DefaultMinPeriods = grate.DefaultMinPeriods

	// Serial passage defaults
	DefaultGrowthThreshold = 0.5

	// HTTP
	DefaultPort         = 8080
	DefaultMaxBodyBytes = 8 << 20
	DefaultFitTimeout   = 10 * time.Second
	DefaultRateLimit    = 100 // requests per second
	DefaultBurstSize    = 50
)
