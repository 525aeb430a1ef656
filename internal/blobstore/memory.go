package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"folio-go/internal/folio"
)

// MemoryStore keeps blobs in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, hash string, r io.Reader, size int64) error {
	if err := validateHash(hash); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[hash]; !ok {
		m.blobs[hash] = data
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, hash string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.blobs[hash]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

func (m *MemoryStore) Has(_ context.Context, hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[hash]
	return ok, nil
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(context.Context) error {
	return nil
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

var _ folio.BlobStore = (*MemoryStore)(nil)
