package blobstore

import (
	"context"
	"fmt"

	"folio-go/internal/config"
	"folio-go/internal/folio"
)

// NewBlobStoreFromConfig creates a blob store based on the config type. It
// returns nil for type "none". When enc is non-nil the store encrypts content.
func NewBlobStoreFromConfig(ctx context.Context, cfg config.BlobStoreConfig, enc folio.Encryptor) (folio.BlobStore, error) {
	var store folio.BlobStore
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		store = NewMemoryStore()
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("fs_root required for filesystem blob store")
		}
		fsStore, err := NewFileSystemStore(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		store = fsStore
	case "s3":
		s3Store, err := NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		store = s3Store
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}

	if enc != nil {
		return NewEncryptedStore(store, enc), nil
	}
	return store, nil
}
