package folio

import (
	"context"
	"io"
)

// BlobStore holds file contents addressed by content hash so downstream
// analyzers can read them after ingestion.
type BlobStore interface {
	// Put stores content under its hash. Storing the same hash again is a no-op.
	// size is the number of bytes that will be read from r.
	Put(ctx context.Context, hash string, r io.Reader, size int64) error

	// Get writes the stored content for hash to w.
	Get(ctx context.Context, hash string, w io.Writer) error

	// Has reports whether content for hash is stored.
	Has(ctx context.Context, hash string) (bool, error)

	// ValidateSetup verifies that the store is accessible.
	ValidateSetup(ctx context.Context) error
}
