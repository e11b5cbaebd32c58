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

// Writer writes a dataset to a blob. Records must be appended in sorted key
// order by the caller; the writer only persists them.
type Writer struct {
	blob   blobstore.WritableBlob
	buf    *bufio.Writer
	stream io.Writer
	zenc   *zstd.Encoder
	lzw    *lz4.Writer
	n      uint64
	closed bool
}

// NewWriter creates a dataset blob named name in store.
func NewWriter(ctx context.Context, store blobstore.BlobStore, name string, comp Compression) (*Writer, error) {
	blob, err := store.Create(ctx, name)
	if err != nil {
		return nil, err
	}

	buf := bufio.NewWriter(blob)

	header := make([]byte, 0, 6)
	header = append(header, Magic[:]...)
	header = append(header, Version, byte(comp))
	if _, err := buf.Write(header); err != nil {
		_ = blob.Close()
		return nil, err
	}

	w := &Writer{blob: blob, buf: buf}
	switch comp {
	case CompressionNone:
		w.stream = buf
	case CompressionZstd:
		enc, err := zstd.NewWriter(buf)
		if err != nil {
			_ = blob.Close()
			return nil, err
		}
		w.zenc = enc
		w.stream = enc
	case CompressionLZ4:
		w.lzw = lz4.NewWriter(buf)
		w.stream = w.lzw
	default:
		_ = blob.Close()
		return nil, fmt.Errorf("dataset: unknown compression %d", comp)
	}

	return w, nil
}

// Append writes one record.
func (w *Writer) Append(key, value []byte) error {
	var hdr [2 * binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(key)))
	if _, err := w.stream.Write(hdr[:n]); err != nil {
		return err
	}
	if _, err := w.stream.Write(key); err != nil {
		return err
	}
	n = binary.PutUvarint(hdr[:], uint64(len(value)))
	if _, err := w.stream.Write(hdr[:n]); err != nil {
		return err
	}
	if _, err := w.stream.Write(value); err != nil {
		return err
	}
	w.n++
	return nil
}

// Records returns the number of records appended so far.
func (w *Writer) Records() uint64 {
	return w.n
}

// Close flushes all buffers and makes the blob visible. The dataset does not
// exist under its final name until Close returns nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.zenc != nil {
		if err := w.zenc.Close(); err != nil {
			_ = w.blob.Close()
			return err
		}
	}
	if w.lzw != nil {
		if err := w.lzw.Close(); err != nil {
			_ = w.blob.Close()
			return err
		}
	}
	if err := w.buf.Flush(); err != nil {
		_ = w.blob.Close()
		return err
	}
	if err := w.blob.Sync(); err != nil {
		_ = w.blob.Close()
		return err
	}
	return w.blob.Close()
}

// Write persists records (already in sorted key order) as the dataset name.
func Write(ctx context.Context, store blobstore.BlobStore, name string, comp Compression, records []Record) (uint64, error) {
	w, err := NewWriter(ctx, store, name, comp)
	if err != nil {
		return 0, err
	}
	for _, rec := range records {
		if err := w.Append(rec.Key, rec.Value); err != nil {
			_ = w.blob.Close()
			return 0, err
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.Records(), nil
}
