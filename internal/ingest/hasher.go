// Package ingest holds small helpers shared by the upload pipeline.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// HashReader computes the SHA-256 hex digest of everything readable from r.
// The reader is consumed in chunks so large files never need to fit in memory.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes computes the SHA-256 hex digest of a byte slice
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
