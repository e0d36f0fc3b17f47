package crawler

import (
	"crypto/sha256"
	"encoding/hex"
)

// TextHash fingerprints extracted text for change detection between
// document versions.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
