// Package blobstore implements content-addressed storage for file contents
// captured during ingestion.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned by Get when no content is stored under a hash.
var ErrNotFound = errors.New("blob not found")

// validateHash rejects hashes that cannot be used as storage keys.
func validateHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("empty content hash")
	}
	if strings.ContainsAny(hash, `/\.`) {
		return fmt.Errorf("invalid content hash %q", hash)
	}
	return nil
}

// drain consumes r so an idempotent Put still honours the size contract.
func drain(r io.Reader, size int64) error {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, n)
	}
	return nil
}
