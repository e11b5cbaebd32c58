package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/recgo/dataset"
)

func TestMapGroupsSortedResults(t *testing.T) {
	groups := map[int][]int{
		30: {3},
		10: {1, 1},
		20: {2},
	}

	ctrl := NewController(ControllerConfig{MaxWorkers: 4})
	results, err := MapGroups(context.Background(), ctrl, groups, func(key int, values []int) (int, error) {
		sum := 0
		for _, v := range values {
			sum += v
		}
		return sum, nil
	})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, []Keyed[int, int]{
		{Key: 10, Result: 2},
		{Key: 20, Result: 2},
		{Key: 30, Result: 3},
	}, results)
}

func TestMapGroupsDeterministicAcrossWorkerCounts(t *testing.T) {
	groups := make(map[int][]int)
	for i := 0; i < 100; i++ {
		groups[i] = []int{i * 2}
	}

	run := func(workers int) []Keyed[int, int] {
		ctrl := NewController(ControllerConfig{MaxWorkers: workers})
		results, err := MapGroups(context.Background(), ctrl, groups, func(key int, values []int) (int, error) {
			return values[0] + key, nil
		})
		require.NoError(t, err)
		return results
	}

	assert.Equal(t, run(1), run(7), "result order must not depend on scheduling")
}

func TestMapGroupsPropagatesError(t *testing.T) {
	groups := map[int][]int{1: {1}, 2: {2}, 3: {3}}
	sentinel := errors.New("boom")

	ctrl := NewController(ControllerConfig{MaxWorkers: 2})
	_, err := MapGroups(context.Background(), ctrl, groups, func(key int, _ []int) (int, error) {
		if key == 2 {
			return 0, sentinel
		}
		return key, nil
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestMapGroupsEmpty(t *testing.T) {
	ctrl := NewController(ControllerConfig{})
	results, err := MapGroups(context.Background(), ctrl, map[int][]int{}, func(int, []int) (int, error) {
		return 0, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMapGroupsNilController(t *testing.T) {
	results, err := MapGroups(context.Background(), nil, map[int][]int{5: {5}}, func(key int, _ []int) (int, error) {
		return key, nil
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 5, results[0].Result)
}

func TestChunkRanges(t *testing.T) {
	assert.Empty(t, chunkRanges(0, 4))
	assert.Equal(t, []keyRange{{0, 5}}, chunkRanges(5, 1))
	assert.Equal(t, []keyRange{{0, 1}, {1, 2}}, chunkRanges(2, 8), "never more chunks than items")

	// Uneven split covers [0, n) without gaps.
	chunks := chunkRanges(10, 3)
	require.Len(t, chunks, 3)
	lo := 0
	total := 0
	for _, c := range chunks {
		assert.Equal(t, lo, c.lo)
		total += c.hi - c.lo
		lo = c.hi
	}
	assert.Equal(t, 10, total)
}

func TestSortRecords(t *testing.T) {
	records := []dataset.Record{
		{Key: []byte{2}, Value: []byte("b")},
		{Key: []byte{1}, Value: []byte("z")},
		{Key: []byte{2}, Value: []byte("a")},
	}
	SortRecords(records)
	assert.Equal(t, []dataset.Record{
		{Key: []byte{1}, Value: []byte("z")},
		{Key: []byte{2}, Value: []byte("a")},
		{Key: []byte{2}, Value: []byte("b")},
	}, records)
}

func TestParsePhase(t *testing.T) {
	for _, p := range Phases() {
		got, err := ParsePhase(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePhase("nope")
	assert.Error(t, err)
}

func TestControllerAcquireIOUnlimited(t *testing.T) {
	ctrl := NewController(ControllerConfig{})
	assert.NoError(t, ctrl.AcquireIO(context.Background(), 1<<30))

	var nilCtrl *Controller
	assert.NoError(t, nilCtrl.AcquireIO(context.Background(), 1024))
}

func TestControllerAcquireIOLimited(t *testing.T) {
	ctrl := NewController(ControllerConfig{IOLimitBytesPerSec: 1 << 20})
	// A request larger than the burst must still complete by chunking.
	assert.NoError(t, ctrl.AcquireIO(context.Background(), (1<<20)+512))
}
