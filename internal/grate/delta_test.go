package grate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "platereader/internal/errors"
	"platereader/pkg/contracts/domain"
)

func TestGrowthRateDelta(t *testing.T) {
	rows := []StrainRate{
		{Strain: "S1", Treatment: Ancestral, Grate: domain.Some(0.4)},
		{Strain: "S1", Treatment: Ancestral, Grate: domain.Some(0.6)},
		{Strain: "S1", Treatment: "drugA", Grate: domain.Some(0.75)},
		{Strain: "S1", Treatment: "drugB", Grate: domain.None()},
	}

	deltas, failures := GrowthRateDelta(rows)

	require.Len(t, deltas, len(rows))
	assert.Empty(t, failures)
	assert.False(t, deltas[0].Valid)
	assert.False(t, deltas[1].Valid)
	got, ok := deltas[2].Get()
	require.True(t, ok)
	assert.InDelta(t, 0.5, got, 1e-12)
	assert.False(t, deltas[3].Valid)
}

func TestGrowthRateDelta_MissingBaselineIsIsolated(t *testing.T) {
	rows := []StrainRate{
		{Strain: "S1", Treatment: "drugA", Grate: domain.Some(0.3)},
		{Strain: "S2", Treatment: Ancestral, Grate: domain.Some(0.5)},
		{Strain: "S1", Treatment: "drugB", Grate: domain.Some(0.2)},
		{Strain: "S2", Treatment: "drugA", Grate: domain.Some(0.25)},
		{Strain: "S3", Treatment: Ancestral, Grate: domain.None()},
		{Strain: "S3", Treatment: "drugA", Grate: domain.Some(0.25)},
	}

	deltas, failures := GrowthRateDelta(rows)

	assert.False(t, deltas[0].Valid)
	assert.False(t, deltas[2].Valid)
	assert.False(t, deltas[5].Valid)
	got, ok := deltas[3].Get()
	require.True(t, ok)
	assert.InDelta(t, -0.5, got, 1e-12)

	require.Len(t, failures, 2)
	assert.ErrorIs(t, failures["S1"], apierrors.ErrGroupingFailure)
	assert.ErrorIs(t, failures["S3"], apierrors.ErrGroupingFailure)
	assert.NotContains(t, failures, "S2")
}

func TestEvolved(t *testing.T) {
	assert.Equal(t, "ancestral", Evolved(Ancestral))
	assert.Equal(t, "evolved", Evolved("drugA"))
}
