// Package recommend implements the item-based co-occurrence recommendation
// stages: item indexing, user vector building, co-occurrence counting,
// preference pruning, the partial-product join, and top-N aggregation.
//
// Each stage is a pure function over grouped keyed input. The orchestrator in
// the root package wires the stages to persisted datasets; everything in this
// package is deterministic given its input.
package recommend

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hupe1980/recgo/codec"
	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/vector"
)

var (
	// ErrMalformedRecord is returned for input lines that do not parse as
	// preference records. Fatal: retrying the same input cannot succeed.
	ErrMalformedRecord = errors.New("recommend: malformed preference record")

	// ErrUnknownItemID is returned when a preference references an item
	// absent from the index table. Fatal input-consistency error.
	ErrUnknownItemID = errors.New("recommend: preference references unknown item")

	// ErrDuplicateCooccurrenceColumn is returned when the joiner sees two
	// co-occurrence columns for one item index. Signals an upstream defect.
	ErrDuplicateCooccurrenceColumn = errors.New("recommend: duplicate co-occurrence column")
)

// Preference is one raw (user, item, value) input record.
type Preference struct {
	UserID core.UserID
	ItemID core.ItemID
	Value  float64
}

// RecommendedItem is one entry of a final per-user recommendation list.
type RecommendedItem struct {
	ItemID core.ItemID `json:"itemID"`
	Score  float64     `json:"score"`
}

// Recommendations is the final output record for one user, ordered by
// descending score.
type Recommendations struct {
	UserID core.UserID       `json:"userID"`
	Items  []RecommendedItem `json:"items"`
}

// String renders the list in the compact [item:score,...] form used by the
// text output writer.
func (r Recommendations) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d\t[", int64(r.UserID))
	for i, item := range r.Items {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d:%g", int64(item.ItemID), item.Score)
	}
	sb.WriteByte(']')
	return sb.String()
}

// VectorOrPref carries either a co-occurrence column or a single user
// preference. It is the tagged union on which the joiner consumes both
// producers as one keyed stream.
type VectorOrPref struct {
	Column   *vector.Vector // non-nil iff this is a column
	UserID   core.UserID
	Value    float64
	Excluded bool
}

// VectorAndPrefs is the join result for one item index: the co-occurrence
// column plus ordered-parallel lists of contributing users and values.
// Entries with Excluded[i] set carry no usable value and must be discarded
// before any product is computed.
type VectorAndPrefs struct {
	Column   *vector.Vector
	UserIDs  []core.UserID
	Values   []float64
	Excluded []bool
}

// EncodeVectorAndPrefs serializes v for the partial-products dataset.
// Contributions are sorted by user ID so encoding is order-independent.
func EncodeVectorAndPrefs(v *VectorAndPrefs) []byte {
	n := len(v.UserIDs)
	ord := make([]int, n)
	for i := range ord {
		ord[i] = i
	}
	sort.Slice(ord, func(a, b int) bool { return v.UserIDs[ord[a]] < v.UserIDs[ord[b]] })

	out := codec.AppendVector(nil, v.Column)
	out = binary.AppendUvarint(out, uint64(n))
	for _, i := range ord {
		out = binary.AppendVarint(out, int64(v.UserIDs[i]))
		if v.Excluded[i] {
			out = append(out, 1)
			continue
		}
		out = append(out, 0)
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v.Values[i]))
	}
	return out
}

// DecodeVectorAndPrefs deserializes a partial-products dataset value.
func DecodeVectorAndPrefs(data []byte) (*VectorAndPrefs, error) {
	column, rest, err := codec.ConsumeVector(data)
	if err != nil {
		return nil, err
	}

	count, n := binary.Uvarint(rest)
	if n <= 0 {
		return nil, fmt.Errorf("%w: contribution count", codec.ErrVectorCorrupt)
	}
	rest = rest[n:]

	v := &VectorAndPrefs{
		Column:   column,
		UserIDs:  make([]core.UserID, 0, count),
		Values:   make([]float64, 0, count),
		Excluded: make([]bool, 0, count),
	}

	for i := uint64(0); i < count; i++ {
		user, n := binary.Varint(rest)
		if n <= 0 {
			return nil, fmt.Errorf("%w: contribution user", codec.ErrVectorCorrupt)
		}
		rest = rest[n:]

		if len(rest) < 1 {
			return nil, fmt.Errorf("%w: contribution tag", codec.ErrVectorCorrupt)
		}
		excluded := rest[0] == 1
		rest = rest[1:]

		value := 0.0
		if !excluded {
			if len(rest) < 8 {
				return nil, fmt.Errorf("%w: contribution value", codec.ErrVectorCorrupt)
			}
			value = math.Float64frombits(binary.LittleEndian.Uint64(rest))
			rest = rest[8:]
		}

		v.UserIDs = append(v.UserIDs, core.UserID(user))
		v.Values = append(v.Values, value)
		v.Excluded = append(v.Excluded, excluded)
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", codec.ErrVectorCorrupt)
	}
	return v, nil
}

// UserKey encodes a user ID as a fixed-width big-endian dataset key.
func UserKey(u core.UserID) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(u))
	return k[:]
}

// DecodeUserKey decodes a dataset key written by UserKey.
func DecodeUserKey(k []byte) (core.UserID, error) {
	if len(k) != 8 {
		return 0, fmt.Errorf("recommend: bad user key length %d", len(k))
	}
	return core.UserID(binary.BigEndian.Uint64(k)), nil
}

// IndexKey encodes an item index as a fixed-width big-endian dataset key.
func IndexKey(i core.ItemIndex) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], uint32(i))
	return k[:]
}

// DecodeIndexKey decodes a dataset key written by IndexKey.
func DecodeIndexKey(k []byte) (core.ItemIndex, error) {
	if len(k) != 4 {
		return 0, fmt.Errorf("recommend: bad index key length %d", len(k))
	}
	return core.ItemIndex(binary.BigEndian.Uint32(k)), nil
}
