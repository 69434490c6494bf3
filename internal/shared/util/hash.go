package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PrincipalDigest returns the first n hex characters of the SHA-256 of a
// trimmed principal. An n outside 1..64 yields the full digest.
func PrincipalDigest(principal string, n int) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(principal)))
	full := hex.EncodeToString(sum[:])
	if n <= 0 || n > len(full) {
		return full
	}
	return full[:n]
}
