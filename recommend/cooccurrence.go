package recommend

import (
	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/vector"
)

// CooccurrencePairs enumerates all unordered pairs of active entries in a
// user vector and feeds unit evidence for (i, j) and (j, i) symmetrically to
// emit. The expansion is quadratic in the number of active entries; the
// builder itself applies no cap, that is the pruning stage's job. Excluded
// slots contribute no pairs.
func CooccurrencePairs(v *vector.Vector, emit func(i, j core.ItemIndex)) {
	indices := make([]core.ItemIndex, 0, v.Len())
	v.IterateActive(func(i core.ItemIndex, _ float64) bool {
		indices = append(indices, i)
		return true
	})

	for a := 0; a < len(indices); a++ {
		for b := a + 1; b < len(indices); b++ {
			emit(indices[a], indices[b])
			emit(indices[b], indices[a])
		}
	}
}

// CooccurrenceColumns accumulates co-occurrence evidence from a batch of
// user vectors into one sparse column per item index. Column addition is
// associative and commutative, so partial column sets built from disjoint
// batches can be merged in any order and any number of times.
func CooccurrenceColumns(vectors []*vector.Vector) map[core.ItemIndex]*vector.Vector {
	columns := make(map[core.ItemIndex]*vector.Vector)
	for _, v := range vectors {
		CooccurrencePairs(v, func(i, j core.ItemIndex) {
			col := columns[i]
			if col == nil {
				col = vector.New()
				columns[i] = col
			}
			cur, _ := col.Get(j)
			col.Set(j, cur+1)
		})
	}
	return columns
}

// MergeCooccurrenceColumns folds partial column sets into dst.
func MergeCooccurrenceColumns(dst, src map[core.ItemIndex]*vector.Vector) {
	for i, col := range src {
		cur := dst[i]
		if cur == nil {
			dst[i] = col
			continue
		}
		cur.Add(col)
	}
}
