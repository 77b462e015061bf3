package hashing

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// SHA256Hex returns the plain byte hash of a media payload as lowercase hex.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// KeccakOfJSON hashes the canonical JSON form of v with Keccak-256 and
// returns a 0x-prefixed 32-byte hex string. The canonical form sorts object
// keys and strips insignificant whitespace, so any party re-serializing the
// same structure reproduces the same hash.
func KeccakOfJSON(v any) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(canonical)
	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}
