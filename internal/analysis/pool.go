package analysis

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	apierrors "platereader/internal/errors"
)

// runGroups calls fn once per key on at most workers goroutines and merges
// the results by key. A panic in fn is recovered and turned into that key's
// result by failed. It stops early only when ctx is cancelled.
func runGroups[K comparable, R any](
	ctx context.Context,
	workers int,
	keys []K,
	fn func(context.Context, K) R,
	failed func(K, error) R,
) (map[K]R, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var mu sync.Mutex
	results := make(map[K]R, len(keys))
	store := func(key K, r R) {
		mu.Lock()
		results[key] = r
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, key := range keys {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			defer func() {
				if rec := recover(); rec != nil {
					store(key, failed(key, apierrors.NewGroupPanicError(fmt.Sprint(key), rec)))
				}
			}()
			store(key, fn(egCtx, key))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
