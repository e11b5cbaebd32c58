// Package blobstore abstracts the storage that holds every persisted stage
// dataset. Each pipeline phase writes one immutable blob and the next phase
// re-reads it; resume works by re-opening blobs recorded in the manifest.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for reading and writing immutable data blobs
// (stage datasets, manifests).
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a new blob for streaming writes. The blob becomes
	// visible atomically when the returned writer is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the size of the blob in bytes.
	Size() int64
	io.Closer
}

// WritableBlob is a streaming writer for a new blob.
type WritableBlob interface {
	io.Writer
	// Sync flushes buffered data to durable storage where supported.
	Sync() error
	io.Closer
}

// Mappable is an optional interface for Blobs that support zero-copy access.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// NewReader adapts a Blob to a sequential io.Reader bound to ctx.
func NewReader(ctx context.Context, b Blob) io.Reader {
	return &blobReader{ctx: ctx, b: b}
}

type blobReader struct {
	ctx context.Context
	b   Blob
	off int64
}

func (r *blobReader) Read(p []byte) (int, error) {
	n, err := r.b.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	return n, err
}
