package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/recgo/core"
)

func TestCollectItemIDsDeduplicates(t *testing.T) {
	prefs := []Preference{
		{UserID: 1, ItemID: 100},
		{UserID: 2, ItemID: 100},
		{UserID: 1, ItemID: 200},
	}
	seen := CollectItemIDs(prefs)
	assert.EqualValues(t, 2, seen.GetCardinality())
}

func TestMergeItemIDsIdempotent(t *testing.T) {
	a := CollectItemIDs([]Preference{{ItemID: 1}, {ItemID: 2}})
	b := CollectItemIDs([]Preference{{ItemID: 2}, {ItemID: 3}})

	once := MergeItemIDs(a, b)
	// Repeated and reordered application changes nothing.
	again := MergeItemIDs(b, a, a, b, once)
	assert.True(t, once.Equals(again), "merge must be commutative and idempotent")
	assert.EqualValues(t, 3, once.GetCardinality())
}

func TestBuildItemIndexTable(t *testing.T) {
	seen := CollectItemIDs([]Preference{{ItemID: 300}, {ItemID: 100}, {ItemID: 200}})

	table, err := BuildItemIndexTable(seen)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	// Dense, unique indices covering [0, n).
	used := make(map[core.ItemIndex]bool)
	for _, id := range []core.ItemID{100, 200, 300} {
		idx, ok := table.IndexOf(id)
		require.True(t, ok, "item %d", id)
		require.Less(t, int(idx), 3)
		require.False(t, used[idx], "index %d assigned twice", idx)
		used[idx] = true

		back, ok := table.ItemOf(idx)
		require.True(t, ok)
		assert.Equal(t, id, back)
	}

	_, ok := table.IndexOf(999)
	assert.False(t, ok)
	_, ok = table.ItemOf(3)
	assert.False(t, ok)
}

func TestBuildItemIndexTableDeterministic(t *testing.T) {
	build := func(prefs []Preference) []core.ItemID {
		table, err := BuildItemIndexTable(CollectItemIDs(prefs))
		require.NoError(t, err)
		out := make([]core.ItemID, table.Len())
		for i := range out {
			id, ok := table.ItemOf(core.ItemIndex(i))
			require.True(t, ok)
			out[i] = id
		}
		return out
	}

	a := build([]Preference{{ItemID: 5}, {ItemID: 1}, {ItemID: 9}})
	b := build([]Preference{{ItemID: 9}, {ItemID: 9}, {ItemID: 5}, {ItemID: 1}})
	assert.Equal(t, a, b, "assignment must be a pure function of the observed item set")
}

func TestItemIndexRecordsRoundTrip(t *testing.T) {
	table, err := BuildItemIndexTable(CollectItemIDs([]Preference{
		{ItemID: 10}, {ItemID: 20}, {ItemID: 30},
	}))
	require.NoError(t, err)

	got, err := ItemIndexFromRecords(table.Records())
	require.NoError(t, err)
	require.Equal(t, table.Len(), got.Len())
	for i := 0; i < table.Len(); i++ {
		want, _ := table.ItemOf(core.ItemIndex(i))
		have, ok := got.ItemOf(core.ItemIndex(i))
		require.True(t, ok)
		assert.Equal(t, want, have)
	}
}

func TestItemIndexFromRecordsRejectsSparse(t *testing.T) {
	table, err := BuildItemIndexTable(CollectItemIDs([]Preference{{ItemID: 1}, {ItemID: 2}}))
	require.NoError(t, err)

	records := table.Records()
	records = records[1:] // drop index 0

	_, err = ItemIndexFromRecords(records)
	assert.Error(t, err)
}
