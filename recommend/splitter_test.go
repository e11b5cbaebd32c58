package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/vector"
)

func TestPruneUserVectorNoOpAtOrBelowCap(t *testing.T) {
	v := vector.FromEntries([]vector.Entry{
		{Index: 1, Value: 1},
		{Index: 2, Value: 2},
		{Index: 3, Value: 3},
	})

	got := PruneUserVector(v, 3)
	assert.Equal(t, 3, got.NumActive())
	got = PruneUserVector(v, 10)
	assert.Equal(t, 3, got.NumActive())
}

func TestPruneUserVectorKeepsLargestMagnitudes(t *testing.T) {
	v := vector.FromEntries([]vector.Entry{
		{Index: 1, Value: 0.5},
		{Index: 2, Value: -9},
		{Index: 3, Value: 3},
		{Index: 4, Value: -0.1},
		{Index: 5, Value: 7},
	})

	got := PruneUserVector(v, 2)

	// Magnitudes 9 and 7 survive; the sign is irrelevant.
	assert.Equal(t, 2, got.NumActive())
	_, ok := got.Get(2)
	assert.True(t, ok)
	_, ok = got.Get(5)
	assert.True(t, ok)

	// Excluded slots keep their index position but lose readability.
	for _, i := range []core.ItemIndex{1, 3, 4} {
		assert.True(t, got.Contains(i), "slot %d must survive pruning", i)
		assert.True(t, got.Excluded(i), "slot %d must be excluded", i)
	}
}

func TestPruneUserVectorRetainsTiesAtThreshold(t *testing.T) {
	// Three entries share the threshold magnitude 2; all are retained even
	// though that admits 4 > K=2 entries.
	v := vector.FromEntries([]vector.Entry{
		{Index: 1, Value: 5},
		{Index: 2, Value: 2},
		{Index: 3, Value: -2},
		{Index: 4, Value: 2},
		{Index: 5, Value: 1},
	})

	got := PruneUserVector(v, 2)
	assert.Equal(t, 4, got.NumActive(), "ties at the threshold are retained")
	assert.True(t, got.Excluded(5))
}

func TestPruneUserVectorTwelveEntriesCapTen(t *testing.T) {
	entries := make([]vector.Entry, 0, 12)
	for i := 1; i <= 12; i++ {
		entries = append(entries, vector.Entry{Index: core.ItemIndex(i), Value: float64(i)})
	}
	v := vector.FromEntries(entries)

	got := PruneUserVector(v, 10)
	require.Equal(t, 10, got.NumActive())
	assert.True(t, got.Excluded(1), "smallest magnitude excluded")
	assert.True(t, got.Excluded(2), "second-smallest magnitude excluded")
	for i := 3; i <= 12; i++ {
		_, ok := got.Get(core.ItemIndex(i))
		assert.True(t, ok, "entry %d must survive", i)
	}
	assert.Equal(t, 12, got.Len(), "every slot survives, excluded ones included")
}

func TestPruneUserVectorMutatesInPlace(t *testing.T) {
	v := vector.FromEntries([]vector.Entry{
		{Index: 1, Value: 1},
		{Index: 2, Value: 2},
		{Index: 3, Value: 3},
	})

	got := PruneUserVector(v, 2)
	assert.Same(t, v, got)
	assert.True(t, v.Excluded(1))
}

func TestSplitUserVectorEmitsAllSlots(t *testing.T) {
	v := vector.FromEntries([]vector.Entry{
		{Index: 1, Value: 1.5},
		{Index: 2, Excluded: true},
	})

	emitted := make(map[core.ItemIndex]VectorOrPref)
	SplitUserVector(core.UserID(42), v, func(i core.ItemIndex, p VectorOrPref) {
		emitted[i] = p
	})

	require.Len(t, emitted, 2)
	assert.Equal(t, VectorOrPref{UserID: 42, Value: 1.5}, emitted[1])
	assert.True(t, emitted[2].Excluded, "excluded slots are emitted with the exclusion tag")
	assert.Nil(t, emitted[2].Column)
}
