package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"platereader/internal/analysis"
	"platereader/internal/config"
	apierrors "platereader/internal/errors"
	"platereader/internal/grate"
	"platereader/internal/mic"
	"platereader/internal/shared/testutil"
	"platereader/pkg/contracts/domain"
)

func doseCurve() mic.Curve {
	return mic.CurveFromReadings(testutil.DoseResponsePlate("E1", "WT", 0.5, 2))
}

func TestFitCurve(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewAnalysisService(config.Default(), nil, logger)

	result, err := svc.FitCurve(context.Background(), doseCurve(), CurveOptions{
		Sanity:    domain.Some(0.2),
		Normalise: domain.Some(0.2),
	})
	require.NoError(t, err)

	assert.Equal(t, mic.OutcomeFitted, result.Hill.Outcome)
	assert.Equal(t, mic.OutcomeFitted, result.Gompertz.Outcome)
	assert.True(t, result.Gompertz.MIC.Valid)
	ic50, ok := result.Hill.C.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.5, ic50, 0.1)

	cmic, ok := result.Classical.MIC.Get()
	require.True(t, ok)
	assert.Greater(t, cmic, 0.5)
	assert.Empty(t, result.Errors)
}

func TestFitCurve_StopsWhenContextDone(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	svc := NewAnalysisService(config.Default(), nil, logger)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.FitCurve(ctx, doseCurve(), CurveOptions{})
	require.NoError(t, err)

	assert.Equal(t, mic.OutcomeNotConverged, result.Hill.Outcome)
	assert.Equal(t, mic.OutcomeNotConverged, result.Gompertz.Outcome)
	assert.ErrorIs(t, result.Hill.Err, context.Canceled)
	assert.ErrorIs(t, result.Gompertz.Err, apierrors.ErrNonConvergence)
	assert.Contains(t, result.Errors, "hill")
	assert.Contains(t, result.Errors, "gompertz")
	assert.True(t, result.Classical.MIC.Valid)
	testutil.AssertWarnAttr(t, logs, "did not converge", "model", "gompertz")
}

func TestFitCurve_Discarded(t *testing.T) {
	svc := NewAnalysisService(config.Default(), nil, nil)
	flat := mic.Curve{
		{Concentration: 0, OD600: 0.5},
		{Concentration: 1, OD600: 0.5},
		{Concentration: 2, OD600: 0.51},
		{Concentration: 4, OD600: 0.5},
	}

	result, err := svc.FitCurve(context.Background(), flat, CurveOptions{Sanity: domain.Some(0.2)})
	require.NoError(t, err)
	assert.Equal(t, mic.OutcomeDiscarded, result.Hill.Outcome)
	assert.Equal(t, mic.OutcomeDiscarded, result.Gompertz.Outcome)
}

func TestFitCurve_NoTreatedWells(t *testing.T) {
	svc := NewAnalysisService(config.Default(), nil, nil)
	curve := mic.Curve{{Concentration: 0, OD600: 1}, {Concentration: 0, OD600: 0.9}}

	result, err := svc.FitCurve(context.Background(), curve, CurveOptions{})
	require.NoError(t, err)
	assert.Equal(t, mic.OutcomeNoData, result.Hill.Outcome)
	assert.Contains(t, result.Errors, "hill")
	assert.Contains(t, result.Errors, "gompertz")
}

func TestFitCurve_Empty(t *testing.T) {
	svc := NewAnalysisService(config.Default(), nil, nil)
	_, err := svc.FitCurve(context.Background(), nil, CurveOptions{})
	assert.ErrorIs(t, err, apierrors.ErrDataInsufficient)
}

func TestFitCurve_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	metrics, err := analysis.NewMetrics(provider.Meter("test"))
	require.NoError(t, err)

	svc := NewAnalysisService(config.Default(), metrics, nil)
	_, err = svc.FitCurve(context.Background(), doseCurve(), CurveOptions{})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var groups int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "analysis_groups_processed_total" {
				for _, dp := range sum.DataPoints {
					groups += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), groups)
}

func TestGrowthRate(t *testing.T) {
	svc := NewAnalysisService(config.Default(), nil, nil)
	curve := grate.CurveFromReadings(testutil.GrowthCurve(domain.Reading{}, 0.01, 0.6, 600, 30))

	result, err := svc.GrowthRate(context.Background(), curve, GrowthOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Rates, 30)
	g, ok := result.Grate.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.6, g, 1e-6)
	assert.Empty(t, result.Error)
}

func TestGrowthRate_Overrides(t *testing.T) {
	svc := NewAnalysisService(config.Default(), nil, nil)
	curve := grate.CurveFromReadings(testutil.GrowthCurve(domain.Reading{}, 0.01, 0.6, 600, 4))

	result, err := svc.GrowthRate(context.Background(), curve, GrowthOptions{Window: 2 * time.Hour, MinPeriods: 10})
	require.NoError(t, err)
	assert.False(t, result.Grate.Valid)
	assert.NotEmpty(t, result.Error)

	result, err = svc.GrowthRate(context.Background(), curve, GrowthOptions{Window: 2 * time.Hour, MinPeriods: 2, TopK: 1})
	require.NoError(t, err)
	assert.True(t, result.Grate.Valid)
}

func TestGrowthRate_Empty(t *testing.T) {
	svc := NewAnalysisService(config.Default(), nil, nil)
	_, err := svc.GrowthRate(context.Background(), nil, GrowthOptions{})
	assert.ErrorIs(t, err, apierrors.ErrDataInsufficient)
}
