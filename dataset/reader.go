package dataset

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/recgo/blobstore"
)

// Reader streams the records of one dataset blob.
type Reader struct {
	blob   blobstore.Blob
	stream *bufio.Reader
	zdec   *zstd.Decoder
}

// NewReader opens the dataset blob named name in store.
func NewReader(ctx context.Context, store blobstore.BlobStore, name string) (*Reader, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	raw := bufio.NewReader(blobstore.NewReader(ctx, blob))

	var header [6]byte
	if _, err := io.ReadFull(raw, header[:]); err != nil {
		_ = blob.Close()
		return nil, fmt.Errorf("dataset %s: read header: %w", name, err)
	}
	if [4]byte(header[:4]) != Magic {
		_ = blob.Close()
		return nil, fmt.Errorf("dataset %s: %w", name, ErrBadMagic)
	}
	if header[4] != Version {
		_ = blob.Close()
		return nil, fmt.Errorf("dataset %s: %w: %d", name, ErrBadVersion, header[4])
	}

	r := &Reader{blob: blob}
	switch Compression(header[5]) {
	case CompressionNone:
		r.stream = raw
	case CompressionZstd:
		dec, err := zstd.NewReader(raw)
		if err != nil {
			_ = blob.Close()
			return nil, err
		}
		r.zdec = dec
		r.stream = bufio.NewReader(dec)
	case CompressionLZ4:
		r.stream = bufio.NewReader(lz4.NewReader(raw))
	default:
		_ = blob.Close()
		return nil, fmt.Errorf("dataset %s: unknown compression %d", name, header[5])
	}

	return r, nil
}

// Next returns the next record. It returns io.EOF after the last record.
// The returned slices are owned by the caller.
func (r *Reader) Next() (key, value []byte, err error) {
	keyLen, err := binary.ReadUvarint(r.stream)
	if err == io.EOF {
		return nil, nil, io.EOF
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: key length: %v", ErrCorruptRecord, err)
	}

	key = make([]byte, keyLen)
	if _, err := io.ReadFull(r.stream, key); err != nil {
		return nil, nil, fmt.Errorf("%w: key: %v", ErrCorruptRecord, err)
	}

	valueLen, err := binary.ReadUvarint(r.stream)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: value length: %v", ErrCorruptRecord, err)
	}

	value = make([]byte, valueLen)
	if _, err := io.ReadFull(r.stream, value); err != nil {
		return nil, nil, fmt.Errorf("%w: value: %v", ErrCorruptRecord, err)
	}

	return key, value, nil
}

// Close releases the underlying blob.
func (r *Reader) Close() error {
	if r.zdec != nil {
		r.zdec.Close()
	}
	return r.blob.Close()
}

// ForEach streams every record of the dataset through fn.
func ForEach(ctx context.Context, store blobstore.BlobStore, name string, fn func(key, value []byte) error) error {
	r, err := NewReader(ctx, store, name)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	for {
		key, value, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
}

// ReadAll loads every record of the dataset into memory.
func ReadAll(ctx context.Context, store blobstore.BlobStore, name string) ([]Record, error) {
	var records []Record
	err := ForEach(ctx, store, name, func(key, value []byte) error {
		records = append(records, Record{Key: key, Value: value})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
