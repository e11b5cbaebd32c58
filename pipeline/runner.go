package pipeline

import (
	"bytes"
	"cmp"
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/recgo/dataset"
)

// Keyed pairs a group key with the result computed for that group.
type Keyed[K cmp.Ordered, R any] struct {
	Key    K
	Result R
}

// MapGroups runs fn once per key group, in parallel across workers, and
// returns the results in ascending key order.
//
// fn must be a pure function of its group: it may not touch shared mutable
// state. Because results come back key-sorted, the caller's subsequent fold
// is deterministic no matter how groups were scheduled. The fold the caller
// applies must be associative and commutative if it is also used as a
// combiner before data movement.
func MapGroups[K cmp.Ordered, V any, R any](
	ctx context.Context,
	ctrl *Controller,
	groups map[K][]V,
	fn func(key K, values []V) (R, error),
) ([]Keyed[K, R], error) {
	keys := make([]K, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]Keyed[K, R], len(keys))

	g, ctx := errgroup.WithContext(ctx)
	for _, chunk := range chunkRanges(len(keys), ctrl.MaxWorkers()) {
		g.Go(func() error {
			if err := ctrl.AcquireWorker(ctx); err != nil {
				return err
			}
			defer ctrl.ReleaseWorker()

			for i := chunk.lo; i < chunk.hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				k := keys[i]
				r, err := fn(k, groups[k])
				if err != nil {
					return err
				}
				out[i] = Keyed[K, R]{Key: k, Result: r}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type keyRange struct {
	lo, hi int
}

// chunkRanges splits [0, n) into at most workers contiguous ranges.
func chunkRanges(n, workers int) []keyRange {
	if n == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	out := make([]keyRange, 0, workers)
	size := n / workers
	rem := n % workers
	lo := 0
	for i := 0; i < workers; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		out = append(out, keyRange{lo: lo, hi: hi})
		lo = hi
	}
	return out
}

// SortRecords orders records by key bytes, then value bytes. Dataset writers
// require sorted input so re-runs are byte-identical.
func SortRecords(records []dataset.Record) {
	sort.Slice(records, func(i, j int) bool {
		if c := bytes.Compare(records[i].Key, records[j].Key); c != 0 {
			return c < 0
		}
		return bytes.Compare(records[i].Value, records[j].Value) < 0
	})
}
