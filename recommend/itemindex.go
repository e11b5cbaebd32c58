package recommend

import (
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/dataset"
)

// ItemIndexTable is the bijective mapping between observed item IDs and the
// dense indices used by every later stage. Built once by the item-index
// phase, immutable afterwards.
type ItemIndexTable struct {
	ids  []core.ItemID
	byID map[core.ItemID]core.ItemIndex
}

// CollectItemIDs deduplicates the item IDs of a batch of preferences into a
// bitmap. This is the pre-aggregation step of the indexing phase: bitmap
// union is commutative and idempotent, so it is safe to apply per partition,
// repeatedly, and in any grouping before the index is finalized.
func CollectItemIDs(prefs []Preference) *roaring64.Bitmap {
	seen := roaring64.New()
	for _, p := range prefs {
		seen.Add(uint64(p.ItemID))
	}
	return seen
}

// MergeItemIDs unions partial bitmaps into one.
func MergeItemIDs(parts ...*roaring64.Bitmap) *roaring64.Bitmap {
	all := roaring64.New()
	for _, p := range parts {
		all.Or(p)
	}
	return all
}

// BuildItemIndexTable assigns dense indices to the deduplicated item IDs.
// Indices follow the bitmap's ascending unsigned order, which makes the
// assignment a pure function of the observed item set.
func BuildItemIndexTable(ids *roaring64.Bitmap) (*ItemIndexTable, error) {
	n := ids.GetCardinality()
	if n > uint64(core.MaxItemIndex) {
		return nil, fmt.Errorf("recommend: %d distinct items exceed the index space", n)
	}

	t := &ItemIndexTable{
		ids:  make([]core.ItemID, 0, n),
		byID: make(map[core.ItemID]core.ItemIndex, n),
	}

	it := ids.Iterator()
	for it.HasNext() {
		id := core.ItemID(it.Next())
		t.byID[id] = core.ItemIndex(len(t.ids))
		t.ids = append(t.ids, id)
	}
	return t, nil
}

// Len returns the number of indexed items.
func (t *ItemIndexTable) Len() int {
	return len(t.ids)
}

// IndexOf returns the dense index of an item ID.
func (t *ItemIndexTable) IndexOf(id core.ItemID) (core.ItemIndex, bool) {
	idx, ok := t.byID[id]
	return idx, ok
}

// ItemOf returns the item ID stored at a dense index.
func (t *ItemIndexTable) ItemOf(idx core.ItemIndex) (core.ItemID, bool) {
	if int(idx) >= len(t.ids) {
		return 0, false
	}
	return t.ids[idx], true
}

// Records serializes the table as dataset records in index order.
func (t *ItemIndexTable) Records() []dataset.Record {
	out := make([]dataset.Record, 0, len(t.ids))
	for i, id := range t.ids {
		out = append(out, dataset.Record{
			Key:   IndexKey(core.ItemIndex(i)),
			Value: binary.AppendVarint(nil, int64(id)),
		})
	}
	return out
}

// ItemIndexFromRecords rebuilds the table from persisted records. The index
// set must be dense over [0, n); anything else is a corrupt dataset.
func ItemIndexFromRecords(records []dataset.Record) (*ItemIndexTable, error) {
	t := &ItemIndexTable{
		ids:  make([]core.ItemID, len(records)),
		byID: make(map[core.ItemID]core.ItemIndex, len(records)),
	}

	seen := make([]bool, len(records))
	for _, rec := range records {
		idx, err := DecodeIndexKey(rec.Key)
		if err != nil {
			return nil, err
		}
		if int(idx) >= len(records) || seen[idx] {
			return nil, fmt.Errorf("recommend: item index table is not dense at %d", idx)
		}
		id, n := binary.Varint(rec.Value)
		if n <= 0 {
			return nil, fmt.Errorf("recommend: corrupt item index record at %d", idx)
		}
		seen[idx] = true
		t.ids[idx] = core.ItemID(id)
		t.byID[core.ItemID(id)] = idx
	}

	if len(t.byID) != len(records) {
		return nil, fmt.Errorf("recommend: item index table has duplicate item IDs")
	}
	return t, nil
}
