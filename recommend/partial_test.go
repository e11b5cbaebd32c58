package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/vector"
)

func testColumn(entries ...vector.Entry) *vector.Vector {
	return vector.FromEntries(entries)
}

func TestJoinVectorAndPrefs(t *testing.T) {
	column := testColumn(vector.Entry{Index: 2, Value: 3})

	vp, err := JoinVectorAndPrefs(1, []VectorOrPref{
		{UserID: 10, Value: 1.5},
		{Column: column},
		{UserID: 20, Value: -1, Excluded: true},
	})
	require.NoError(t, err)
	require.NotNil(t, vp)

	assert.Same(t, column, vp.Column)
	assert.Equal(t, []core.UserID{10, 20}, vp.UserIDs)
	assert.Equal(t, []float64{1.5, -1}, vp.Values)
	assert.Equal(t, []bool{false, true}, vp.Excluded)
}

func TestJoinVectorAndPrefsDuplicateColumn(t *testing.T) {
	_, err := JoinVectorAndPrefs(7, []VectorOrPref{
		{Column: testColumn()},
		{UserID: 1, Value: 1},
		{Column: testColumn()},
	})
	assert.ErrorIs(t, err, ErrDuplicateCooccurrenceColumn)
}

func TestJoinVectorAndPrefsDropsWithoutContributions(t *testing.T) {
	vp, err := JoinVectorAndPrefs(1, []VectorOrPref{{Column: testColumn()}})
	require.NoError(t, err)
	assert.Nil(t, vp, "a column without contributions seeds no partial product")
}

func TestJoinVectorAndPrefsDropsWithoutColumn(t *testing.T) {
	vp, err := JoinVectorAndPrefs(1, []VectorOrPref{{UserID: 1, Value: 2}})
	require.NoError(t, err)
	assert.Nil(t, vp, "contributions without a column never co-occurred with anything")
}

func TestPartialProducts(t *testing.T) {
	vp := &VectorAndPrefs{
		Column:   testColumn(vector.Entry{Index: 3, Value: 2}, vector.Entry{Index: 4, Value: 1}),
		UserIDs:  []core.UserID{10, 20},
		Values:   []float64{2, -1},
		Excluded: []bool{false, false},
	}

	partials := make(map[core.UserID]*vector.Vector)
	PartialProducts(vp, func(user core.UserID, partial *vector.Vector) {
		partials[user] = partial
	})

	require.Len(t, partials, 2)
	got, ok := partials[10].Get(3)
	require.True(t, ok)
	assert.Equal(t, 4.0, got)
	got, ok = partials[20].Get(4)
	require.True(t, ok)
	assert.Equal(t, -1.0, got)
}

func TestPartialProductsDiscardsExcludedContributions(t *testing.T) {
	// An excluded contribution must produce zero partial products, for any
	// downstream item, no matter what value rode along with it.
	vp := &VectorAndPrefs{
		Column:   testColumn(vector.Entry{Index: 3, Value: 2}),
		UserIDs:  []core.UserID{10, 20},
		Values:   []float64{2, 999},
		Excluded: []bool{false, true},
	}

	var emitted []core.UserID
	PartialProducts(vp, func(user core.UserID, _ *vector.Vector) {
		emitted = append(emitted, user)
	})
	assert.Equal(t, []core.UserID{10}, emitted)
}

func TestVectorAndPrefsRoundTrip(t *testing.T) {
	in := &VectorAndPrefs{
		Column:   testColumn(vector.Entry{Index: 1, Value: 2}, vector.Entry{Index: 9, Value: 4}),
		UserIDs:  []core.UserID{30, 10, 20},
		Values:   []float64{3, 1, 0},
		Excluded: []bool{false, false, true},
	}

	out, err := DecodeVectorAndPrefs(EncodeVectorAndPrefs(in))
	require.NoError(t, err)

	assert.Equal(t, in.Column.Entries(), out.Column.Entries())
	// Encoding sorts contributions by user ID.
	assert.Equal(t, []core.UserID{10, 20, 30}, out.UserIDs)
	assert.Equal(t, []float64{1, 0, 3}, out.Values)
	assert.Equal(t, []bool{false, true, false}, out.Excluded)
}

func TestDecodeVectorAndPrefsCorrupt(t *testing.T) {
	in := &VectorAndPrefs{
		Column:   testColumn(vector.Entry{Index: 1, Value: 2}),
		UserIDs:  []core.UserID{1},
		Values:   []float64{1},
		Excluded: []bool{false},
	}
	data := EncodeVectorAndPrefs(in)

	_, err := DecodeVectorAndPrefs(data[:len(data)-2])
	assert.Error(t, err)

	_, err = DecodeVectorAndPrefs(append(data, 0))
	assert.Error(t, err, "trailing bytes")
}
