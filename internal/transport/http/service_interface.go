package http

import (
	"context"

	"platereader/internal/grate"
	"platereader/internal/mic"
	"platereader/internal/services"
)

// AnalysisServiceInterface defines the single-curve analyses
type AnalysisServiceInterface interface {
	FitCurve(ctx context.Context, curve mic.Curve, opts services.CurveOptions) (*services.CurveResult, error)
	GrowthRate(ctx context.Context, curve grate.Curve, opts services.GrowthOptions) (*services.GrowthResult, error)
}

// HealthServiceInterface defines the health checks
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
