package recommend

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/internal/queue"
	"github.com/hupe1980/recgo/vector"
)

// SumPartialScores sums partial score vectors element-wise. Addition is
// associative and commutative, so this doubles as the pre-aggregation
// combiner: it may be applied to any sub-grouping of a user's partials, any
// number of times, before the final consolidation.
func SumPartialScores(partials []*vector.Vector) *vector.Vector {
	sum := vector.New()
	for _, p := range partials {
		sum.Add(p)
	}
	return sum
}

// TopNRecommendations ranks one user's summed candidate scores and returns
// the top n as final recommendations, most-recommended first.
//
// Items in the user's rated set - the unpruned preference slots, excluded
// ones included - are removed from candidacy first; a user is never
// recommended an item they already rated. Ranking is descending by score
// with ties broken by ascending item ID, keeping output stable across runs.
func TopNRecommendations(scores *vector.Vector, rated *roaring.Bitmap, table *ItemIndexTable, n int) ([]RecommendedItem, error) {
	if n <= 0 {
		return nil, nil
	}

	heap := queue.NewMin(n)
	scores.IterateActive(func(i core.ItemIndex, score float64) bool {
		if rated != nil && rated.Contains(uint32(i)) {
			return true
		}
		heap.PushBounded(queue.Item{Index: i, Score: score}, n)
		return true
	})

	items := make([]RecommendedItem, 0, heap.Len())
	for {
		item, ok := heap.Pop()
		if !ok {
			break
		}
		id, ok := table.ItemOf(item.Index)
		if !ok {
			return nil, fmt.Errorf("recommend: score for item index %d missing from index table", item.Index)
		}
		items = append(items, RecommendedItem{ItemID: id, Score: item.Score})
	}

	// The heap pops ascending; final order is descending score, then
	// ascending item ID.
	sort.Slice(items, func(a, b int) bool {
		if items[a].Score != items[b].Score {
			return items[a].Score > items[b].Score
		}
		return items[a].ItemID < items[b].ItemID
	})
	return items, nil
}
