package encryption

import (
	"fmt"

	"folio-go/internal/config"
	"folio-go/internal/folio"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. It returns nil when encryption is disabled.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (folio.Encryptor, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
