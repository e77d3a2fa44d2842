package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ETag returns a strong entity tag for data: the quoted hex SHA-256 digest.
func ETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
