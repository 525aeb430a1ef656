package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"folio-go/internal/folio"
)

// FileSystemStore stores blobs as files sharded by the first two characters
// of their hash:
//
//	<root>/
//	  ab/
//	    ab12...   (content named by hash)
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a store rooted at root, creating it if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

func (s *FileSystemStore) path(hash string) string {
	shard := hash
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.root, shard, hash)
}

// Put stores content under hash. Existing content is left untouched.
func (s *FileSystemStore) Put(_ context.Context, hash string, r io.Reader, size int64) error {
	if err := validateHash(hash); err != nil {
		return err
	}
	dest := s.path(hash)
	if _, err := os.Stat(dest); err == nil {
		return drain(r, size)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}
	return writeAtomic(dest, r, size)
}

func (s *FileSystemStore) Get(_ context.Context, hash string, w io.Writer) error {
	if err := validateHash(hash); err != nil {
		return err
	}
	f, err := os.Open(s.path(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return fmt.Errorf("failed to open blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}
	return nil
}

func (s *FileSystemStore) Has(_ context.Context, hash string) (bool, error) {
	if err := validateHash(hash); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(hash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking blob: %w", err)
}

// ValidateSetup verifies that the root exists and is writable.
func (s *FileSystemStore) ValidateSetup(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("blob root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob root is not a directory: %s", s.root)
	}
	probe, err := os.CreateTemp(s.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("blob root is not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// writeAtomic writes r to dest through a temp file in the same directory
// followed by a rename, so readers never see partial content.
func writeAtomic(dest string, r io.Reader, expectedSize int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ folio.BlobStore = (*FileSystemStore)(nil)
