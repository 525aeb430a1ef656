package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"folio-go/internal/folio"
)

// EncryptedStore encrypts content with the public key before handing it to
// the wrapped store. Get returns ciphertext; use GetDecrypted for plaintext.
type EncryptedStore struct {
	inner     folio.BlobStore
	encryptor folio.Encryptor
}

// NewEncryptedStore wraps inner so that all stored content is encrypted.
func NewEncryptedStore(inner folio.BlobStore, encryptor folio.Encryptor) *EncryptedStore {
	return &EncryptedStore{inner: inner, encryptor: encryptor}
}

// Put encrypts content and stores it under the plaintext hash.
func (s *EncryptedStore) Put(ctx context.Context, hash string, r io.Reader, size int64) error {
	exists, err := s.inner.Has(ctx, hash)
	if err != nil {
		return err
	}
	if exists {
		return drain(r, size)
	}

	counter := &countingReader{r: r}
	var buf bytes.Buffer
	if err := s.encryptor.Encrypt(counter, &buf); err != nil {
		return fmt.Errorf("encrypting blob %s: %w", hash, err)
	}
	if counter.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counter.n)
	}
	return s.inner.Put(ctx, hash, &buf, int64(buf.Len()))
}

// Get writes the stored ciphertext to w.
func (s *EncryptedStore) Get(ctx context.Context, hash string, w io.Writer) error {
	return s.inner.Get(ctx, hash, w)
}

// GetDecrypted writes the plaintext for hash to w.
func (s *EncryptedStore) GetDecrypted(ctx context.Context, hash string, w io.Writer, dec folio.DecryptionContext) error {
	var buf bytes.Buffer
	if err := s.inner.Get(ctx, hash, &buf); err != nil {
		return err
	}
	if err := dec.Decrypt(&buf, w); err != nil {
		return fmt.Errorf("decrypting blob %s: %w", hash, err)
	}
	return nil
}

func (s *EncryptedStore) Has(ctx context.Context, hash string) (bool, error) {
	return s.inner.Has(ctx, hash)
}

func (s *EncryptedStore) ValidateSetup(ctx context.Context) error {
	if !s.encryptor.IsConfigured() {
		return fmt.Errorf("encryption keys are not configured (run 'folio keys init')")
	}
	return s.inner.ValidateSetup(ctx)
}

var _ folio.BlobStore = (*EncryptedStore)(nil)
