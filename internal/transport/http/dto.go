package http

import (
	"time"

	"platereader/internal/grate"
	"platereader/internal/mic"
	"platereader/internal/services"
	"platereader/pkg/contracts/domain"
)

// MICRequest is the body of POST /api/v1/mic. Omitting sanity or
// normalise turns the quality gate or normalization off. The optimizer
// budget is capped per request; server.fit_timeout bounds the wall time.
type MICRequest struct {
	Threshold      *float64     `json:"threshold,omitempty" validate:"omitempty,gt=0"`
	Sanity         *float64     `json:"sanity,omitempty" validate:"omitempty,gte=0"`
	Normalise      *float64     `json:"normalise,omitempty" validate:"omitempty,gte=0"`
	MaxEvaluations int          `json:"max_evaluations,omitempty" validate:"omitempty,min=1,max=100000"`
	Samples        []mic.Sample `json:"samples" validate:"required,min=1,dive"`
}

// Options converts the request to service options
func (r MICRequest) Options() services.CurveOptions {
	return services.CurveOptions{
		Threshold:      optional(r.Threshold),
		Sanity:         optional(r.Sanity),
		Normalise:      optional(r.Normalise),
		MaxEvaluations: r.MaxEvaluations,
	}
}

// GrateRequest is the body of POST /api/v1/grate. Zero fields take the
// configured defaults.
type GrateRequest struct {
	WindowMinutes float64        `json:"window_minutes,omitempty" validate:"omitempty,gt=0"`
	MinPeriods    int            `json:"min_periods,omitempty" validate:"omitempty,min=2"`
	TopK          int            `json:"top_k,omitempty" validate:"omitempty,min=1"`
	Samples       []grate.Sample `json:"samples" validate:"required,min=2,dive"`
}

// Options converts the request to service options
func (r GrateRequest) Options() services.GrowthOptions {
	return services.GrowthOptions{
		Window:     time.Duration(r.WindowMinutes * float64(time.Minute)),
		MinPeriods: r.MinPeriods,
		TopK:       r.TopK,
	}
}

func optional(v *float64) domain.Float {
	if v == nil {
		return domain.None()
	}
	return domain.Some(*v)
}
