// Package manifest persists the pipeline-state record that makes runs
// resumable.
//
// The orchestrator records each completed phase together with the dataset it
// produced and a fingerprint of the run configuration. On a re-run with an
// identical fingerprint, completed leading phases are skipped; any mismatch
// discards the recorded state so no phase ever consumes output produced
// under different settings.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hupe1980/recgo/blobstore"
	"github.com/hupe1980/recgo/codec"
)

const (
	// FileName is the base name of manifest blobs.
	FileName = "MANIFEST"
	// CurrentFileName is the pointer blob naming the active manifest.
	CurrentFileName = "CURRENT"
	// CurrentVersion is the manifest format version.
	CurrentVersion = 1
)

// Manifest is the persisted state of one pipeline run.
type Manifest struct {
	Version     int         `json:"version"`
	ID          uint64      `json:"id"`
	Codec       string      `json:"codec"`
	Fingerprint string      `json:"fingerprint"`
	Phases      []PhaseInfo `json:"phases"`
}

// PhaseInfo records one completed phase.
type PhaseInfo struct {
	Name    string `json:"name"`
	Dataset string `json:"dataset"`
	Records uint64 `json:"records"`
}

// Completed reports whether the named phase is recorded as complete.
func (m *Manifest) Completed(name string) (PhaseInfo, bool) {
	for _, p := range m.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseInfo{}, false
}

// MarkCompleted records a completed phase, replacing any previous record for
// the same phase name.
func (m *Manifest) MarkCompleted(info PhaseInfo) {
	for i, p := range m.Phases {
		if p.Name == info.Name {
			m.Phases[i] = info
			return
		}
	}
	m.Phases = append(m.Phases, info)
}

// Reset drops all completed-phase records and installs a new fingerprint.
func (m *Manifest) Reset(fingerprint string) {
	m.Fingerprint = fingerprint
	m.Phases = nil
}

// Store manages the manifest blobs and atomic updates.
type Store struct {
	store blobstore.BlobStore
	codec codec.Codec
	mu    sync.Mutex
}

// NewStore creates a manifest store over the given blob store.
func NewStore(store blobstore.BlobStore, c codec.Codec) *Store {
	if c == nil {
		c = codec.Default
	}
	return &Store{store: store, codec: c}
}

// Load loads the current manifest. A missing CURRENT pointer yields an empty
// manifest, not an error.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := readAll(ctx, s.store, CurrentFileName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return &Manifest{Version: CurrentVersion, Codec: s.codec.Name()}, nil
	}
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(string(current))
	data, err := readAll(ctx, s.store, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", name, err)
	}

	var m Manifest
	if err := s.codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", name, err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("manifest: unsupported version %d (expected %d)", m.Version, CurrentVersion)
	}
	if m.Codec != "" && m.Codec != s.codec.Name() {
		if _, ok := codec.ByName(m.Codec); !ok {
			return nil, fmt.Errorf("manifest: unknown codec %q", m.Codec)
		}
	}

	return &m, nil
}

// Save atomically installs m as the current manifest: the manifest blob is
// written first, then the CURRENT pointer is swapped.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	m.Codec = s.codec.Name()
	m.ID++

	data, err := s.codec.Marshal(m)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s-%06d.json", FileName, m.ID)
	if err := s.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("manifest: write %s: %w", name, err)
	}
	if err := s.store.Put(ctx, CurrentFileName, []byte(name)); err != nil {
		return fmt.Errorf("manifest: update %s: %w", CurrentFileName, err)
	}
	return nil
}

func readAll(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	data := make([]byte, blob.Size())
	if len(data) == 0 {
		return data, nil
	}
	if _, err := blob.ReadAt(ctx, data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return data, nil
}
