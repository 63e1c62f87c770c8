package mic

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "platereader/internal/errors"
	"platereader/internal/shared/testutil"
	"platereader/pkg/contracts/domain"
)

func TestHill_RecoversNoiselessParameters(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	fitter := NewFitter(logger)
	curve := CurveFromReadings(testutil.DoseResponsePlate("E1", "S1", 2, 1.5))

	res := fitter.Hill(context.Background(), curve, DefaultFitOptions())

	require.Equal(t, OutcomeFitted, res.Outcome)
	require.NoError(t, res.Err)
	want := []float64{0.05, 1.0, 2, 1.5}
	for i, p := range res.Params() {
		got, ok := p.Get()
		require.True(t, ok, "parameter %d undefined", i)
		assert.InDelta(t, want[i], got, 1e-4, "parameter %d", i)
	}
	for i, sd := range res.StdErrs() {
		got, ok := sd.Get()
		require.True(t, ok, "SD %d undefined", i)
		assert.InDelta(t, 0, got, 1e-4, "SD %d", i)
	}
	assert.Empty(t, logs.AtLevel(slog.LevelWarn))
}

func TestHill_IC50ReproducesMidpoint(t *testing.T) {
	fitter := NewFitter(nil)
	curve := CurveFromReadings(testutil.DoseResponsePlate("E1", "S1", 2, 1.5))

	res := fitter.Hill(context.Background(), curve, DefaultFitOptions())
	require.Equal(t, OutcomeFitted, res.Outcome)

	p := []float64{res.A.OrNaN(), res.B.OrNaN(), res.C.OrNaN(), res.D.OrNaN()}
	assert.InDelta(t, (p[0]+p[1])/2, HillFunc(p[2], p), 1e-9)
}

func TestHill_FlatCurveSkipsOptimizer(t *testing.T) {
	tests := []struct {
		name  string
		od    float64
		wantC float64
	}{
		{"never grows", 0.05, 0.0625},
		{"never inhibited", 1.0, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			curve := Curve{}
			for _, c := range testutil.DoseSeries {
				curve = append(curve, Sample{Concentration: c, OD600: tt.od})
			}
			opts := DefaultFitOptions()
			opts.Sanity = domain.Some(0.2)
			// a single evaluation would fail the fit if the optimizer ran
			opts.MaxEvaluations = 1

			res := NewFitter(nil).Hill(context.Background(), curve, opts)

			assert.Equal(t, OutcomeDiscarded, res.Outcome)
			assert.NoError(t, res.Err)
			assert.Equal(t, domain.Some(tt.wantC), res.C)
			assert.False(t, res.A.Valid)
			assert.False(t, res.B.Valid)
			assert.False(t, res.D.Valid)
			assert.False(t, res.SDc.Valid)
		})
	}
}

func TestHill_FlatCurveNormalized(t *testing.T) {
	curve := Curve{}
	for _, c := range testutil.DoseSeries {
		curve = append(curve, Sample{Concentration: c, OD600: 0.05})
	}
	opts := DefaultFitOptions()
	opts.Sanity = domain.Some(0.2)
	opts.Normalise = domain.Some(0.2)

	res := NewFitter(nil).Hill(context.Background(), curve, opts)

	assert.Equal(t, OutcomeDiscarded, res.Outcome)
	assert.Equal(t, domain.Some(0.0625), res.C)
}

func TestHill_NoNormalizationAnchor(t *testing.T) {
	curve := CurveFromReadings(testutil.DoseResponsePlate("E1", "S1", 2, 1.5))
	opts := DefaultFitOptions()
	opts.Normalise = domain.Some(0.01)

	res := NewFitter(nil).Hill(context.Background(), curve, opts)

	assert.Equal(t, OutcomeNoAnchor, res.Outcome)
	assert.ErrorIs(t, res.Err, apierrors.ErrDataInsufficient)
	assert.Equal(t, domain.Some(16.0), res.C)
	assert.False(t, res.A.Valid)
}

func TestHill_NonConvergenceIsReported(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	curve := CurveFromReadings(testutil.DoseResponsePlate("E1", "S1", 2, 1.5))
	opts := DefaultFitOptions()
	opts.MaxEvaluations = 1

	res := NewFitter(logger).Hill(context.Background(), curve, opts)

	assert.Equal(t, OutcomeNotConverged, res.Outcome)
	assert.ErrorIs(t, res.Err, apierrors.ErrNonConvergence)
	for i, p := range res.Params() {
		assert.False(t, p.Valid, "parameter %d", i)
	}
	testutil.AssertWarnAttr(t, logs, "did not converge", "model", "hill")
}

func TestHill_NoTreatedWells(t *testing.T) {
	res := NewFitter(nil).Hill(context.Background(), Curve{{Concentration: 0, OD600: 1}}, DefaultFitOptions())

	assert.Equal(t, OutcomeNoData, res.Outcome)
	assert.ErrorIs(t, res.Err, apierrors.ErrDataInsufficient)
	assert.False(t, res.C.Valid)
}

func TestHill_IC50AboveTestedRangeIsClipped(t *testing.T) {
	curve := CurveFromReadings(testutil.DoseResponsePlate("E1", "S1", 50, 1.5))

	res := NewFitter(nil).Hill(context.Background(), curve, DefaultFitOptions())

	assert.Equal(t, OutcomeClipped, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, domain.Some(16), res.C)
	for i, p := range []domain.Float{res.A, res.B, res.D} {
		assert.False(t, p.Valid, "parameter %d", i)
	}
	for i, sd := range res.StdErrs() {
		assert.False(t, sd.Valid, "SD %d", i)
	}
}
