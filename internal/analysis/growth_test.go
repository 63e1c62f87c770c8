package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "platereader/internal/errors"
	"platereader/internal/grate"
	"platereader/internal/shared/testutil"
	"platereader/pkg/contracts/domain"
)

func growthParams() GrowthParams {
	return GrowthParams{MaximumOD: 0.6, Window: 60 * time.Minute, TopMu: 4, MinPeriods: 5}
}

func well(row string, column int, strain, treatment string, conc float64) domain.Reading {
	return domain.Reading{
		Experiment:    "E1",
		Type:          "grate",
		Plate:         "P1",
		Row:           row,
		Column:        column,
		Strain:        strain,
		Treatment:     treatment,
		Concentration: conc,
	}
}

func TestGrowthCalculator(t *testing.T) {
	var readings []domain.Reading
	readings = append(readings, testutil.GrowthCurve(well("A", 1, "WT", grate.Ancestral, 0), 0.01, 0.6, 600, 30)...)
	readings = append(readings, testutil.GrowthCurve(well("A", 2, "WT", "drugX", 1), 0.01, 0.9, 600, 30)...)

	logger, _ := testutil.NewTestLogger(t)
	calc := NewGrowthCalculator(growthParams(), logger)
	calc.SetConfiguration(2, nil)

	report, err := calc.Calculate(context.Background(), readings)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Empty(t, report.DeltaFailures)

	ancestral, evolved := report.Rows[0], report.Rows[1]
	require.Equal(t, 1, ancestral.Key.Column)

	assert.InDelta(t, 0.6, ancestral.Grate.Value, 1e-9)
	assert.False(t, ancestral.Drug)
	assert.Equal(t, grate.Ancestral, ancestral.Evolved)
	assert.False(t, ancestral.Delta.Valid)

	assert.InDelta(t, 0.9, evolved.Grate.Value, 1e-9)
	assert.True(t, evolved.Drug)
	assert.Equal(t, "evolved", evolved.Evolved)
	require.True(t, evolved.Delta.Valid)
	assert.InDelta(t, 0.5, evolved.Delta.Value, 1e-9)

	for _, s := range evolved.Curve {
		assert.Less(t, s.OD600, 0.6)
	}
	assert.Len(t, evolved.Rates, len(evolved.Curve))
}

func TestGrowthCalculatorMissingBaseline(t *testing.T) {
	var readings []domain.Reading
	readings = append(readings, testutil.GrowthCurve(well("A", 1, "WT", grate.Ancestral, 0), 0.01, 0.6, 600, 30)...)
	readings = append(readings, testutil.GrowthCurve(well("A", 2, "WT", "drugX", 0), 0.01, 0.9, 600, 30)...)
	readings = append(readings, testutil.GrowthCurve(well("B", 1, "MUT", "drugX", 0), 0.01, 0.7, 600, 30)...)

	report, err := NewGrowthCalculator(growthParams(), nil).Calculate(context.Background(), readings)
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	require.Contains(t, report.DeltaFailures, "MUT")
	assert.ErrorIs(t, report.DeltaFailures["MUT"], apierrors.ErrGroupingFailure)
	assert.NotContains(t, report.DeltaFailures, "WT")

	mut := report.Rows[2]
	require.Equal(t, "MUT", mut.Key.Strain)
	assert.InDelta(t, 0.7, mut.Grate.Value, 1e-9)
	assert.False(t, mut.Delta.Valid)
	assert.ErrorIs(t, mut.DeltaErr, apierrors.ErrGroupingFailure)

	assert.True(t, report.Rows[1].Delta.Valid)
}

func TestGrowthCalculatorShortCurve(t *testing.T) {
	var readings []domain.Reading
	readings = append(readings, testutil.GrowthCurve(well("A", 1, "WT", grate.Ancestral, 0), 0.01, 0.6, 600, 30)...)
	readings = append(readings, testutil.GrowthCurve(well("A", 2, "WT", grate.Ancestral, 0), 0.01, 0.6, 600, 3)...)

	report, err := NewGrowthCalculator(growthParams(), nil).Calculate(context.Background(), readings)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	short := report.Rows[1]
	assert.False(t, short.Grate.Valid)
	assert.ErrorIs(t, short.Err, apierrors.ErrDataInsufficient)
	assert.InDelta(t, 0.6, report.Rows[0].Grate.Value, 1e-9)
}

func TestGrowthCalculatorTrimsSaturatedWells(t *testing.T) {
	var readings []domain.Reading
	readings = append(readings, testutil.GrowthCurve(well("A", 1, "WT", grate.Ancestral, 0), 0.01, 0.6, 600, 30)...)
	readings = append(readings, testutil.GrowthCurve(well("A", 2, "WT", grate.Ancestral, 0), 0.8, 0.1, 600, 10)...)

	report, err := NewGrowthCalculator(growthParams(), nil).Calculate(context.Background(), readings)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 1, report.Rows[0].Key.Column)
}

func TestGrowthCalculatorInputErrors(t *testing.T) {
	readings := testutil.GrowthCurve(well("A", 1, "WT", grate.Ancestral, 0), 0.01, 0.6, 600, 30)

	tests := []struct {
		name   string
		params func(*GrowthParams)
		want   apierrors.ErrorType
	}{
		{"zero window", func(p *GrowthParams) { p.Window = 0 }, apierrors.ErrTypeValidation},
		{"one period", func(p *GrowthParams) { p.MinPeriods = 1 }, apierrors.ErrTypeValidation},
		{"zero top mu", func(p *GrowthParams) { p.TopMu = 0 }, apierrors.ErrTypeValidation},
		{"everything saturated", func(p *GrowthParams) { p.MaximumOD = 0.001 }, apierrors.ErrTypeDataInsufficient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := growthParams()
			tt.params(&params)
			_, err := NewGrowthCalculator(params, nil).Calculate(context.Background(), readings)
			require.Error(t, err)
			assert.Equal(t, tt.want, apierrors.TypeOf(err))
		})
	}
}

func TestGroupWellsSorted(t *testing.T) {
	readings := []domain.Reading{
		well("B", 1, "WT", grate.Ancestral, 0),
		well("A", 10, "WT", grate.Ancestral, 0),
		well("A", 2, "WT", grate.Ancestral, 0),
		well("A", 2, "WT", grate.Ancestral, 0),
	}
	groups, keys := GroupWells(readings)
	require.Len(t, keys, 3)
	assert.Equal(t, []int{2, 10, 1}, []int{keys[0].Column, keys[1].Column, keys[2].Column})
	assert.Len(t, groups[keys[0]], 2)
}

func TestGrowthCalculatorAnalyseCurve(t *testing.T) {
	calc := NewGrowthCalculator(growthParams(), nil)
	curve := grate.CurveFromReadings(testutil.GrowthCurve(well("A", 1, "WT", grate.Ancestral, 0), 0.01, 0.6, 600, 30))

	row, err := calc.AnalyseCurve(context.Background(), curve)
	require.NoError(t, err)
	require.NoError(t, row.Err)
	assert.InDelta(t, 0.6, row.Grate.Value, 1e-9)
	assert.Len(t, row.Rates, 30)

	_, err = calc.AnalyseCurve(context.Background(), nil)
	assert.ErrorIs(t, err, apierrors.ErrDataInsufficient)

	bad := NewGrowthCalculator(GrowthParams{MaximumOD: 0.6, Window: time.Hour, TopMu: 4, MinPeriods: 1}, nil)
	_, err = bad.AnalyseCurve(context.Background(), curve)
	assert.Equal(t, apierrors.ErrTypeValidation, apierrors.TypeOf(err))
}
