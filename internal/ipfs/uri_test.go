package ipfs

import (
	"strings"
	"testing"
)

const cidV0 = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func TestExtractCIDFromVariants(t *testing.T) {
	refs := []string{
		testCID,
		"ipfs://" + testCID,
		"ipfs://" + testCID + "/image.png",
		"https://ipfs.io/ipfs/" + testCID,
		"https://gateway.example/ipfs/" + testCID + "?download=true",
	}
	for _, ref := range refs {
		got, err := ExtractCID(ref)
		if err != nil {
			t.Fatalf("extract %q failed: %v", ref, err)
		}
		if got != testCID {
			t.Fatalf("extract %q: got %s", ref, got)
		}
	}
}

func TestExtractCIDRejectsGarbage(t *testing.T) {
	for _, ref := range []string{"", "ipfs://", "https://example.com/file.png", "ipfs://not-a-cid"} {
		if _, err := ExtractCID(ref); err == nil {
			t.Fatalf("expected rejection of %q", ref)
		}
	}
}

func TestIsCIDv0(t *testing.T) {
	if !IsCIDv0(cidV0) {
		t.Fatalf("expected %s to be a v0 cid", cidV0)
	}
	if IsCIDv0(testCID) {
		t.Fatal("v1 cid misclassified as v0")
	}
	if IsCIDv0("Qmnot-base58!") {
		t.Fatal("garbage misclassified as v0")
	}
}

func TestValidateCIDReportsMalformedV0(t *testing.T) {
	for _, s := range []string{cidV0, testCID} {
		if err := ValidateCID(s); err != nil {
			t.Fatalf("valid cid %q rejected: %v", s, err)
		}
	}
	err := ValidateCID("QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHd!!!!ojWnPbdG")
	if err == nil {
		t.Fatal("expected rejection of a malformed Qm string")
	}
	if !strings.Contains(err.Error(), "CIDv0") {
		t.Fatalf("expected the v0 diagnostic, got: %v", err)
	}
}

func TestGatewayAndURIHelpers(t *testing.T) {
	if got := ToHTTPS(testCID, ""); got != "https://ipfs.io/ipfs/"+testCID {
		t.Fatalf("default gateway url mismatch: %s", got)
	}
	if got := ToHTTPS(testCID, "gw.example"); !strings.HasPrefix(got, "https://gw.example/ipfs/") {
		t.Fatalf("custom gateway url mismatch: %s", got)
	}
	if got := ToIPFSURI(testCID); got != "ipfs://"+testCID {
		t.Fatalf("ipfs uri mismatch: %s", got)
	}
}

func TestAPIURLFromMultiaddr(t *testing.T) {
	cases := map[string]string{
		"/ip4/127.0.0.1/tcp/5001":          "http://127.0.0.1:5001",
		"/dns4/node.example/tcp/443/https": "https://node.example:443",
		"/dns/pin.example/tcp/9094/tls":    "https://pin.example:9094",
		"/ip6/::1/tcp/5001":                "http://[::1]:5001",
	}
	for in, want := range cases {
		got, err := apiURLFromMultiaddr(in)
		if err != nil {
			t.Fatalf("convert %q failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("convert %q: got %s want %s", in, got, want)
		}
	}
}

func TestAPIURLFromMultiaddrRejectsIncomplete(t *testing.T) {
	for _, in := range []string{"", "/ip4/127.0.0.1", "not a multiaddr"} {
		if _, err := apiURLFromMultiaddr(in); err == nil {
			t.Fatalf("expected rejection of %q", in)
		}
	}
}
