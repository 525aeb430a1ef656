package folio

import "io"

// Encryptor encrypts blobs at rest. Encryption uses the public key only;
// decryption requires unlocking the private key with a passphrase.
type Encryptor interface {
	// Setup generates a key pair and stores the private key encrypted with
	// passphrase. Called by `folio keys init`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a DecryptionContext.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	// Decrypt decrypts data read from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
