// Package vector provides the sparse vector type shared by all pipeline stages.
//
// A Vector maps dense item indices to float64 values. Unset indices are
// implicitly absent. A slot can additionally be marked excluded: the index
// position survives, but the value must never enter any score computation.
// Exclusion is an explicit per-slot tag rather than an overloaded numeric
// sentinel, so a stage that forgets to filter excluded slots fails to compile
// against Get instead of silently summing garbage.
package vector

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/recgo/core"
)

type slot struct {
	value    float64
	excluded bool
}

// Vector is a sparse mapping from ItemIndex to float64.
// It is not safe for concurrent mutation.
type Vector struct {
	slots map[core.ItemIndex]slot
}

// Entry is the exported view of one slot.
type Entry struct {
	Index    core.ItemIndex
	Value    float64
	Excluded bool
}

// New creates an empty vector.
func New() *Vector {
	return &Vector{slots: make(map[core.ItemIndex]slot)}
}

// WithCapacity creates an empty vector sized for n entries.
func WithCapacity(n int) *Vector {
	return &Vector{slots: make(map[core.ItemIndex]slot, n)}
}

// FromEntries builds a vector from entries. Later entries overwrite earlier
// ones with the same index.
func FromEntries(entries []Entry) *Vector {
	v := WithCapacity(len(entries))
	for _, e := range entries {
		if e.Excluded {
			v.slots[e.Index] = slot{excluded: true}
		} else {
			v.slots[e.Index] = slot{value: e.Value}
		}
	}
	return v
}

// Set stores value at index, clearing any exclusion mark.
func (v *Vector) Set(i core.ItemIndex, value float64) {
	v.slots[i] = slot{value: value}
}

// Exclude marks the slot at index as excluded. The index position is
// preserved; the previous value is discarded. Excluding an absent index
// creates an excluded slot.
func (v *Vector) Exclude(i core.ItemIndex) {
	v.slots[i] = slot{excluded: true}
}

// Get returns the value at index. The second result is false if the slot is
// absent or excluded.
func (v *Vector) Get(i core.ItemIndex) (float64, bool) {
	s, ok := v.slots[i]
	if !ok || s.excluded {
		return 0, false
	}
	return s.value, true
}

// Contains reports whether a slot exists at index, excluded or not.
func (v *Vector) Contains(i core.ItemIndex) bool {
	_, ok := v.slots[i]
	return ok
}

// Excluded reports whether the slot at index is marked excluded.
func (v *Vector) Excluded(i core.ItemIndex) bool {
	s, ok := v.slots[i]
	return ok && s.excluded
}

// Len returns the number of slots, including excluded ones.
func (v *Vector) Len() int {
	return len(v.slots)
}

// NumActive returns the number of non-excluded slots.
func (v *Vector) NumActive() int {
	n := 0
	for _, s := range v.slots {
		if !s.excluded {
			n++
		}
	}
	return n
}

// Indices returns all slot indices in ascending order, including excluded ones.
func (v *Vector) Indices() []core.ItemIndex {
	out := make([]core.ItemIndex, 0, len(v.slots))
	for i := range v.slots {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Entries returns all slots in ascending index order.
func (v *Vector) Entries() []Entry {
	out := make([]Entry, 0, len(v.slots))
	for _, i := range v.Indices() {
		s := v.slots[i]
		out = append(out, Entry{Index: i, Value: s.value, Excluded: s.excluded})
	}
	return out
}

// Iterate calls fn for every slot in ascending index order until fn returns
// false. Excluded slots are reported with a zero value and excluded=true.
func (v *Vector) Iterate(fn func(i core.ItemIndex, value float64, excluded bool) bool) {
	for _, i := range v.Indices() {
		s := v.slots[i]
		if !fn(i, s.value, s.excluded) {
			return
		}
	}
}

// IterateActive calls fn for every non-excluded slot in ascending index order
// until fn returns false.
func (v *Vector) IterateActive(fn func(i core.ItemIndex, value float64) bool) {
	for _, i := range v.Indices() {
		s := v.slots[i]
		if s.excluded {
			continue
		}
		if !fn(i, s.value) {
			return
		}
	}
}

// Add sums the active slots of other into v element-wise. Excluded slots of
// other are ignored; exclusion marks on v are overwritten when other carries
// an active value at the same index.
func (v *Vector) Add(other *Vector) {
	for i, s := range other.slots {
		if s.excluded {
			continue
		}
		cur, ok := v.slots[i]
		if !ok || cur.excluded {
			v.slots[i] = slot{value: s.value}
			continue
		}
		v.slots[i] = slot{value: cur.value + s.value}
	}
}

// Scaled returns a new vector holding every active slot of v multiplied by f.
// Excluded slots are dropped, never scaled.
func (v *Vector) Scaled(f float64) *Vector {
	out := WithCapacity(len(v.slots))
	for i, s := range v.slots {
		if s.excluded {
			continue
		}
		out.slots[i] = slot{value: s.value * f}
	}
	return out
}

// Clone returns a deep copy of v, exclusion marks included.
func (v *Vector) Clone() *Vector {
	out := WithCapacity(len(v.slots))
	for i, s := range v.slots {
		out.slots[i] = s
	}
	return out
}

// Bitmap returns the set of all slot indices, excluded ones included, as a
// roaring bitmap. Used for rated-item exclusion during aggregation.
func (v *Vector) Bitmap() *roaring.Bitmap {
	rb := roaring.New()
	for i := range v.slots {
		rb.Add(uint32(i))
	}
	return rb
}

// MaxIndex returns the largest slot index and true, or 0 and false when the
// vector is empty.
func (v *Vector) MaxIndex() (core.ItemIndex, bool) {
	var max core.ItemIndex
	found := false
	for i := range v.slots {
		if !found || i > max {
			max = i
			found = true
		}
	}
	return max, found
}
