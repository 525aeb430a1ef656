package testutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the SHA-256 checksum of data as a lowercase hex string.
// Matches the content hash format used by the hasher and blob store.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256HexString is SHA256Hex for string content.
func SHA256HexString(s string) string {
	return SHA256Hex([]byte(s))
}
