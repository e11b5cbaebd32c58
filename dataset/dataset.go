// Package dataset implements the persisted keyed-record format that connects
// pipeline phases.
//
// Every phase writes one complete dataset and the next phase re-reads it;
// a dataset is therefore the unit of resume. The layout is a small
// uncompressed header followed by an optionally compressed stream of
// length-prefixed (key, value) records:
//
//	magic       4 bytes  "RGDS"
//	version     1 byte
//	compression 1 byte   none | zstd | lz4
//	records     uvarint keyLen, key, uvarint valueLen, value, ...
//
// Records are written in sorted key order so that a re-run produces
// byte-identical datasets. Keys group the records for the consuming stage;
// value semantics are owned by the stage that writes the dataset.
package dataset

import (
	"errors"
	"fmt"
)

// Magic identifies a dataset blob.
var Magic = [4]byte{'R', 'G', 'D', 'S'}

// Version is the current format version.
const Version = 1

var (
	// ErrBadMagic is returned when a blob is not a dataset.
	ErrBadMagic = errors.New("dataset: bad magic")
	// ErrBadVersion is returned for unsupported format versions.
	ErrBadVersion = errors.New("dataset: unsupported version")
	// ErrCorruptRecord is returned when a record cannot be decoded.
	ErrCorruptRecord = errors.New("dataset: corrupt record")
)

// Compression selects the codec for the record stream.
type Compression byte

const (
	// CompressionNone stores records uncompressed.
	CompressionNone Compression = iota
	// CompressionZstd compresses the record stream with zstd.
	CompressionZstd
	// CompressionLZ4 compresses the record stream with lz4.
	CompressionLZ4
)

// String returns the stable name of the compression codec.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", byte(c))
	}
}

// ParseCompression resolves a compression codec by name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("dataset: unknown compression %q", name)
	}
}

// Record is one keyed entry of a dataset.
type Record struct {
	Key   []byte
	Value []byte
}
