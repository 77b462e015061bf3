package metadata

import (
	"fmt"
	"strings"
)

// FormatError reports a metadata reference that must not reach the remote
// registration call: a URI outside the content-addressed scheme or a hash
// that is not a 0x-prefixed 32-byte hex string.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid metadata format: %s %s", e.Field, e.Reason)
}

// ValidateURI requires the ipfs:// scheme with a non-empty content id.
func ValidateURI(field, uri string) error {
	if !strings.HasPrefix(uri, ipfsURIPrefix) {
		return &FormatError{Field: field, Reason: fmt.Sprintf("must use the %s scheme, got %q", ipfsURIPrefix, uri)}
	}
	if strings.TrimPrefix(uri, ipfsURIPrefix) == "" {
		return &FormatError{Field: field, Reason: "has an empty content identifier"}
	}
	return nil
}

// ValidateHash requires 0x followed by exactly 64 lowercase-insensitive hex
// characters (a 32-byte digest).
func ValidateHash(field, hash string) error {
	if !strings.HasPrefix(hash, "0x") {
		return &FormatError{Field: field, Reason: fmt.Sprintf("must be 0x-prefixed, got %q", hash)}
	}
	if len(hash) != hashHexLen {
		return &FormatError{Field: field, Reason: fmt.Sprintf("must be %d characters, got %d", hashHexLen, len(hash))}
	}
	for _, c := range hash[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return &FormatError{Field: field, Reason: fmt.Sprintf("contains a non-hex character %q", c)}
		}
	}
	return nil
}

// ValidateReferences is the pre-mint gate over both uploaded documents.
func ValidateReferences(ipURI, ipHash, nftURI, nftHash string) error {
	if err := ValidateURI("ip metadata uri", ipURI); err != nil {
		return err
	}
	if err := ValidateHash("ip metadata hash", ipHash); err != nil {
		return err
	}
	if err := ValidateURI("nft metadata uri", nftURI); err != nil {
		return err
	}
	if err := ValidateHash("nft metadata hash", nftHash); err != nil {
		return err
	}
	return nil
}
