package mic

import (
	"platereader/internal/stats"
)

const (
	maxSpearman     = 0.2
	minPeakGrowth   = 0.2
	sensitiveGrowth = 0.1
)

// DiscardReason names the quality-gate check that rejected a curve.
type DiscardReason string

const (
	ReasonFlat     DiscardReason = "flat"
	ReasonInverted DiscardReason = "inverted"
	ReasonNoGrowth DiscardReason = "no_growth"
)

// Gate decides whether a dose-response curve carries a signal worth fitting.
// x is the concentration axis as the model sees it, y the (possibly
// normalized) response and raw the raw OD of the same wells.
// The first failing check is reported.
func Gate(x, y, raw []float64, sanity float64) (DiscardReason, bool) {
	switch {
	case stats.Max(raw)-stats.Min(raw) <= sanity:
		return ReasonFlat, true
	case stats.Spearman(x, y) > maxSpearman:
		return ReasonInverted, true
	case stats.Max(y) < minPeakGrowth:
		return ReasonNoGrowth, true
	}
	return "", false
}

// FallbackBoundary is the MIC/IC50 reported for a discarded curve: the lowest
// tested concentration when there is essentially no growth, else the highest.
func FallbackBoundary(y []float64, minConc, maxConc float64) float64 {
	if stats.Mean(y) < sensitiveGrowth {
		return minConc
	}
	return maxConc
}
