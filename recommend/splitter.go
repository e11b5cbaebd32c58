package recommend

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/internal/queue"
	"github.com/hupe1980/recgo/vector"
)

// PruneUserVector caps the co-occurrence fan-out of one user vector. When
// the vector has more than maxPrefs active entries, the maxPrefs entries of
// largest absolute value are kept and every other entry is marked excluded
// in place; the slot survives, the value does not.
//
// Selection runs one pass through a bounded min-heap of size maxPrefs over
// absolute values; the final heap minimum is the smallest value worth
// keeping. A second pass excludes every entry strictly below that
// threshold. Entries tied exactly at the threshold are retained, which can
// keep more than maxPrefs entries when duplicate magnitudes sit at the
// boundary - deterministic and intentional.
//
// Vectors with at most maxPrefs active entries pass through untouched.
func PruneUserVector(v *vector.Vector, maxPrefs int) *vector.Vector {
	if maxPrefs <= 0 || v.NumActive() <= maxPrefs {
		return v
	}

	heap := queue.NewMin(maxPrefs)
	v.IterateActive(func(i core.ItemIndex, value float64) bool {
		heap.PushBounded(queue.Item{Index: i, Score: math.Abs(value)}, maxPrefs)
		return true
	})

	top, ok := heap.Top()
	if !ok {
		return v
	}
	threshold := top.Score

	var excluded []core.ItemIndex
	v.IterateActive(func(i core.ItemIndex, value float64) bool {
		if math.Abs(value) < threshold {
			excluded = append(excluded, i)
		}
		return true
	})
	for _, i := range excluded {
		v.Exclude(i)
	}
	return v
}

// SplitUserVector re-keys one user's (possibly pruned) preferences by item
// index for the join against co-occurrence columns. Every slot is emitted,
// excluded ones included - downstream consumers are responsible for
// recognizing the exclusion tag and discarding those contributions.
func SplitUserVector(user core.UserID, v *vector.Vector, emit func(i core.ItemIndex, p VectorOrPref)) {
	v.Iterate(func(i core.ItemIndex, value float64, excluded bool) bool {
		emit(i, VectorOrPref{UserID: user, Value: value, Excluded: excluded})
		return true
	})
}

// UserEligible reports whether a user passes the optional users filter. A
// nil filter admits everyone; a non-nil filter skips unlisted users before
// any splitting work happens.
func UserEligible(filter *roaring64.Bitmap, user core.UserID) bool {
	return filter == nil || filter.Contains(uint64(user))
}
