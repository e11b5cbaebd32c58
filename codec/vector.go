package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/recgo/core"
	"github.com/hupe1980/recgo/vector"
)

// Binary sparse-vector layout:
//
//	flags    byte   bit0 = dense, bit1 = carries excluded slots
//	count    uvarint
//	sparse:  delta-coded uvarint indices over the sorted index set,
//	         then one little-endian float64 per slot
//	dense:   one little-endian float64 per index in [0, count)
//	if bit1: uvarint number of excluded slots, then delta-coded uvarint
//	         ordinals into the sorted slot list
//
// Excluded slots persist a zero value; the ordinal list is what marks them.
// Unspecified indices are implicitly absent.
const (
	vectorFlagDense    = 1 << 0
	vectorFlagExcluded = 1 << 1
)

// ErrVectorCorrupt is returned when vector bytes cannot be decoded.
var ErrVectorCorrupt = errors.New("codec: corrupt vector encoding")

// AppendVector encodes v and appends the bytes to dst.
func AppendVector(dst []byte, v *vector.Vector) []byte {
	entries := v.Entries()

	var flags byte
	dense := false
	if n := len(entries); n > 0 && int(entries[n-1].Index) == n-1 {
		// Index set is exactly [0, n) - a dense prefix.
		flags |= vectorFlagDense
		dense = true
	}

	var excluded []uint64
	for ord, e := range entries {
		if e.Excluded {
			excluded = append(excluded, uint64(ord))
		}
	}
	if len(excluded) > 0 {
		flags |= vectorFlagExcluded
	}

	dst = append(dst, flags)
	dst = binary.AppendUvarint(dst, uint64(len(entries)))

	if !dense {
		prev := uint64(0)
		for _, e := range entries {
			dst = binary.AppendUvarint(dst, uint64(e.Index)-prev)
			prev = uint64(e.Index)
		}
	}
	for _, e := range entries {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(e.Value))
	}

	if len(excluded) > 0 {
		dst = binary.AppendUvarint(dst, uint64(len(excluded)))
		prev := uint64(0)
		for _, ord := range excluded {
			dst = binary.AppendUvarint(dst, ord-prev)
			prev = ord
		}
	}

	return dst
}

// EncodeVector encodes v into a fresh byte slice.
func EncodeVector(v *vector.Vector) []byte {
	return AppendVector(nil, v)
}

// ConsumeVector decodes one vector from the front of data and returns it
// together with the remaining bytes.
func ConsumeVector(data []byte) (*vector.Vector, []byte, error) {
	if len(data) < 1 {
		return nil, nil, ErrVectorCorrupt
	}
	flags := data[0]
	data = data[1:]

	count, data, err := consumeUvarint(data)
	if err != nil {
		return nil, nil, err
	}
	if count > uint64(core.MaxItemIndex) {
		return nil, nil, fmt.Errorf("%w: entry count %d", ErrVectorCorrupt, count)
	}

	entries := make([]vector.Entry, count)

	if flags&vectorFlagDense != 0 {
		for i := range entries {
			entries[i].Index = core.ItemIndex(i)
		}
	} else {
		prev := uint64(0)
		for i := range entries {
			var delta uint64
			delta, data, err = consumeUvarint(data)
			if err != nil {
				return nil, nil, err
			}
			prev += delta
			if prev > uint64(core.MaxItemIndex) {
				return nil, nil, fmt.Errorf("%w: index overflow", ErrVectorCorrupt)
			}
			entries[i].Index = core.ItemIndex(prev)
		}
	}

	if len(data) < int(count)*8 {
		return nil, nil, ErrVectorCorrupt
	}
	for i := range entries {
		bits := binary.LittleEndian.Uint64(data)
		entries[i].Value = math.Float64frombits(bits)
		data = data[8:]
	}

	if flags&vectorFlagExcluded != 0 {
		var numExcluded uint64
		numExcluded, data, err = consumeUvarint(data)
		if err != nil {
			return nil, nil, err
		}
		prev := uint64(0)
		for i := uint64(0); i < numExcluded; i++ {
			var delta uint64
			delta, data, err = consumeUvarint(data)
			if err != nil {
				return nil, nil, err
			}
			prev += delta
			if prev >= count {
				return nil, nil, fmt.Errorf("%w: excluded ordinal out of range", ErrVectorCorrupt)
			}
			entries[prev].Excluded = true
			entries[prev].Value = 0
		}
	}

	return vector.FromEntries(entries), data, nil
}

// DecodeVector decodes a vector that occupies the whole of data.
func DecodeVector(data []byte) (*vector.Vector, error) {
	v, rest, err := ConsumeVector(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrVectorCorrupt, len(rest))
	}
	return v, nil
}

func consumeUvarint(data []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, nil, ErrVectorCorrupt
	}
	return v, data[n:], nil
}
