package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "platereader/internal/errors"
	"platereader/pkg/contracts/domain"
)

func TestRunGroupsMergesByKey(t *testing.T) {
	keys := []int{1, 2, 3, 4, 5}

	results, err := runGroups(context.Background(), 2, keys,
		func(_ context.Context, k int) int { return k * k },
		func(int, error) int { return -1 })

	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1, 2: 4, 3: 9, 4: 16, 5: 25}, results)
}

func TestRunGroupsIsolatesPanics(t *testing.T) {
	keys := []string{"ok", "boom", "also ok"}
	var mu sync.Mutex
	failures := make(map[string]error)

	results, err := runGroups(context.Background(), 1, keys,
		func(_ context.Context, k string) string {
			if k == "boom" {
				panic("fit exploded")
			}
			return "done " + k
		},
		func(k string, err error) string {
			mu.Lock()
			defer mu.Unlock()
			failures[k] = err
			return "failed"
		})

	require.NoError(t, err)
	assert.Equal(t, "done ok", results["ok"])
	assert.Equal(t, "failed", results["boom"])
	assert.Equal(t, "done also ok", results["also ok"])
	require.Contains(t, failures, "boom")
	assert.ErrorIs(t, failures["boom"], apierrors.ErrGroupPanic)
	assert.Contains(t, failures["boom"].Error(), "analysis of boom panicked")
}

func TestRunGroupsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runGroups(ctx, 1, []int{1, 2},
		func(_ context.Context, k int) int { return k },
		func(int, error) int { return 0 })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFailedMICRow(t *testing.T) {
	key := domain.DoseKey{Experiment: "E1", Plate: "P1", Strain: "WT"}
	cause := apierrors.NewGroupPanicError(key.String(), "fit exploded")

	row := failedMICRow(key, nil, cause)

	assert.Equal(t, OutcomeFailed, row.Hill.Outcome)
	assert.Equal(t, OutcomeFailed, row.Gompertz.Outcome)
	assert.False(t, row.MIC().Valid)
	assert.False(t, row.CMIC().Valid)
	assert.True(t, errors.Is(row.Err(), apierrors.ErrGroupPanic))
	assert.Equal(t, cause.Error(), row.Err().Error())
}
