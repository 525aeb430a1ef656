package testutil

import (
	"folio-go/internal/blobstore"
	"folio-go/internal/encryption"
	"folio-go/internal/folio"
)

// NewTestEncryptor creates a deterministic encryptor that needs no keys.
func NewTestEncryptor() folio.Encryptor {
	return encryption.NewTestEncryptor()
}

// NewTestBlobStore creates an in-memory blob store.
func NewTestBlobStore() *blobstore.MemoryStore {
	return blobstore.NewMemoryStore()
}
