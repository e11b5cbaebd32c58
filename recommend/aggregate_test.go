package recommend

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/vector"
)

func TestSumPartialScoresAssociative(t *testing.T) {
	partials := []*vector.Vector{
		vector.FromEntries([]vector.Entry{{Index: 1, Value: 1}, {Index: 2, Value: 2}}),
		vector.FromEntries([]vector.Entry{{Index: 2, Value: 3}, {Index: 3, Value: 4}}),
		vector.FromEntries([]vector.Entry{{Index: 1, Value: 5}}),
	}

	whole := SumPartialScores(partials)

	// Pre-aggregate a sub-grouping, then consolidate.
	pre := SumPartialScores(partials[:2])
	grouped := SumPartialScores([]*vector.Vector{pre, partials[2]})

	require.Equal(t, whole.Len(), grouped.Len())
	whole.IterateActive(func(i core.ItemIndex, want float64) bool {
		got, ok := grouped.Get(i)
		require.True(t, ok)
		assert.InDelta(t, want, got, 1e-12)
		return true
	})
}

func TestSumPartialScoresEmpty(t *testing.T) {
	sum := SumPartialScores(nil)
	assert.Equal(t, 0, sum.Len())
}

func TestTopNRecommendations(t *testing.T) {
	table := testTable(t, 100, 200, 300, 400)

	scores := vector.New()
	for id, score := range map[core.ItemID]float64{100: 4, 200: 1, 300: 3, 400: 2} {
		idx, ok := table.IndexOf(id)
		require.True(t, ok)
		scores.Set(idx, score)
	}

	items, err := TopNRecommendations(scores, nil, table, 3)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, core.ItemID(100), items[0].ItemID)
	assert.Equal(t, 4.0, items[0].Score)
	for i := 1; i < len(items); i++ {
		assert.Greater(t, items[i-1].Score, items[i].Score, "scores must descend")
	}
}

func TestTopNRecommendationsExcludesRated(t *testing.T) {
	table := testTable(t, 100, 200)

	scores := vector.New()
	idx100, _ := table.IndexOf(100)
	idx200, _ := table.IndexOf(200)
	scores.Set(idx100, 9)
	scores.Set(idx200, 1)

	rated := roaring.New()
	rated.Add(uint32(idx100))

	items, err := TopNRecommendations(scores, rated, table, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, core.ItemID(200), items[0].ItemID, "rated items never come back as recommendations")
}

func TestTopNRecommendationsTieBreak(t *testing.T) {
	table := testTable(t, 100, 200, 300)

	scores := vector.New()
	for _, id := range []core.ItemID{300, 100, 200} {
		idx, ok := table.IndexOf(id)
		require.True(t, ok)
		scores.Set(idx, 2.5)
	}

	items, err := TopNRecommendations(scores, nil, table, 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, core.ItemID(100), items[0].ItemID)
	assert.Equal(t, core.ItemID(200), items[1].ItemID)
	assert.Equal(t, core.ItemID(300), items[2].ItemID, "equal scores order by ascending item ID")
}

func TestTopNRecommendationsCap(t *testing.T) {
	table := testTable(t, 1, 2, 3, 4, 5)

	scores := vector.New()
	for i := 0; i < 5; i++ {
		scores.Set(core.ItemIndex(i), float64(i+1))
	}

	items, err := TopNRecommendations(scores, nil, table, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = TopNRecommendations(scores, nil, table, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTopNRecommendationsSkipsExcludedScores(t *testing.T) {
	table := testTable(t, 100, 200)

	scores := vector.New()
	idx100, _ := table.IndexOf(100)
	idx200, _ := table.IndexOf(200)
	scores.Set(idx100, math.Inf(1))
	scores.Exclude(idx100)
	scores.Set(idx200, 1)

	items, err := TopNRecommendations(scores, nil, table, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, core.ItemID(200), items[0].ItemID)
}

func TestTopNRecommendationsCorruptTable(t *testing.T) {
	table := testTable(t, 100)

	scores := vector.New()
	scores.Set(5, 1) // index 5 does not exist in a 1-item table

	_, err := TopNRecommendations(scores, nil, table, 10)
	assert.Error(t, err)
}

func TestRecommendationsString(t *testing.T) {
	r := Recommendations{
		UserID: 7,
		Items: []RecommendedItem{
			{ItemID: 100, Score: 2.5},
			{ItemID: 200, Score: 1},
		},
	}
	assert.Equal(t, "7\t[100:2.5,200:1]", r.String())

	empty := Recommendations{UserID: 3}
	assert.Equal(t, "3\t[]", empty.String())
}
