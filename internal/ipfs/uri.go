package ipfs

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/mr-tron/base58"
	ma "github.com/multiformats/go-multiaddr"
)

const DefaultGatewayHost = "ipfs.io"

// ValidateCID parses s as a CID (v0 or v1). A Qm-prefixed string that is
// not a well-formed base58 multihash gets a v0-specific diagnostic.
func ValidateCID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("ipfs: empty content identifier")
	}
	if strings.HasPrefix(s, "Qm") && !IsCIDv0(s) {
		return fmt.Errorf("ipfs: malformed CIDv0 %q: want a base58-encoded 34-byte multihash", s)
	}
	if _, err := cid.Decode(s); err != nil {
		return fmt.Errorf("ipfs: invalid content identifier %q: %w", s, err)
	}
	return nil
}

// IsCIDv0 reports whether s has the legacy base58 multihash shape (Qm…,
// 34 decoded bytes).
func IsCIDv0(s string) bool {
	if !strings.HasPrefix(s, "Qm") {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == 34
}

// ExtractCID pulls the bare content identifier out of an ipfs:// URI, a
// gateway URL, or a raw CID string.
func ExtractCID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "ipfs://"):
		ref = strings.TrimPrefix(ref, "ipfs://")
	case strings.Contains(ref, "/ipfs/"):
		ref = ref[strings.Index(ref, "/ipfs/")+len("/ipfs/"):]
	}
	if i := strings.IndexAny(ref, "/?#"); i >= 0 {
		ref = ref[:i]
	}
	if err := ValidateCID(ref); err != nil {
		return "", err
	}
	return ref, nil
}

// ToHTTPS maps a content identifier onto a public gateway URL.
func ToHTTPS(cidStr, gatewayHost string) string {
	if strings.TrimSpace(gatewayHost) == "" {
		gatewayHost = DefaultGatewayHost
	}
	return (&url.URL{Scheme: "https", Host: gatewayHost, Path: "/ipfs/" + cidStr}).String()
}

// ToIPFSURI maps a content identifier onto the content-addressed URI scheme.
func ToIPFSURI(cidStr string) string {
	return "ipfs://" + cidStr
}

// apiURLFromMultiaddr converts an API multiaddr into an HTTP base URL.
// Supported shapes: /ip4|ip6|dns|dns4|dns6/<host>/tcp/<port>[/http|/https|/tls].
func apiURLFromMultiaddr(s string) (string, error) {
	addr, err := ma.NewMultiaddr(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("ipfs: invalid api multiaddr %q: %w", s, err)
	}

	var host, port string
	scheme := "http"
	ma.ForEach(addr, func(comp ma.Component) bool {
		switch comp.Protocol().Code {
		case ma.P_IP4, ma.P_IP6, ma.P_DNS, ma.P_DNS4, ma.P_DNS6:
			host = comp.Value()
		case ma.P_TCP:
			port = comp.Value()
		case ma.P_HTTPS, ma.P_TLS:
			scheme = "https"
		case ma.P_HTTP:
			scheme = "http"
		}
		return true
	})
	if host == "" || port == "" {
		return "", fmt.Errorf("ipfs: api multiaddr %q must include a host and tcp port", s)
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, host, port), nil
}
