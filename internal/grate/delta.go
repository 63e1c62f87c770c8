package grate

import (
	"fmt"

	apierrors "platereader/internal/errors"
	"platereader/internal/stats"
	"platereader/pkg/contracts/domain"
)

// Ancestral is the treatment label of the pre-evolution baseline.
const Ancestral = "ancestral"

// StrainRate is the aggregated growth rate of one well.
type StrainRate struct {
	Strain    string
	Treatment string
	Grate     domain.Float
}

// Evolved labels a treatment the way the growth tables do: ancestral wells
// keep their label, everything else is "evolved".
func Evolved(treatment string) string {
	if treatment == Ancestral {
		return Ancestral
	}
	return "evolved"
}

// GrowthRateDelta returns, aligned with rows, the relative change of each
// well's rate against the mean ancestral rate of its strain. Ancestral wells
// have no delta. Strains whose baseline cannot be formed get undefined deltas
// and an entry in the returned error map; other strains are unaffected.
func GrowthRateDelta(rows []StrainRate) ([]domain.Float, map[string]error) {
	ancestral := make(map[string][]float64)
	seen := make(map[string]bool)
	for _, r := range rows {
		if r.Treatment != Ancestral {
			continue
		}
		seen[r.Strain] = true
		if v, ok := r.Grate.Get(); ok {
			ancestral[r.Strain] = append(ancestral[r.Strain], v)
		}
	}

	failures := make(map[string]error)
	baselines := make(map[string]float64)
	for _, r := range rows {
		if _, done := baselines[r.Strain]; done || failures[r.Strain] != nil {
			continue
		}
		switch base := stats.Mean(ancestral[r.Strain]); {
		case !seen[r.Strain]:
			failures[r.Strain] = apierrors.NewGroupingError(r.Strain, fmt.Sprintf("strain %q has no ancestral wells", r.Strain))
		case len(ancestral[r.Strain]) == 0:
			failures[r.Strain] = apierrors.NewGroupingError(r.Strain, fmt.Sprintf("strain %q has no ancestral growth rate", r.Strain))
		case base == 0:
			failures[r.Strain] = apierrors.NewGroupingError(r.Strain, fmt.Sprintf("strain %q has a zero ancestral growth rate", r.Strain))
		default:
			baselines[r.Strain] = base
		}
	}

	deltas := make([]domain.Float, len(rows))
	for i, r := range rows {
		base, ok := baselines[r.Strain]
		rate, defined := r.Grate.Get()
		if r.Treatment == Ancestral || !ok || !defined {
			continue
		}
		deltas[i] = domain.Some((rate - base) / base)
	}
	return deltas, failures
}
