package metadata

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func buildInput() BuildInput {
	return BuildInput{
		Title:       "Cat",
		Prompt:      "a cat in a hat",
		ImageURL:    "https://ipfs.io/ipfs/bafybeigdyrcat",
		ImageHash:   "deadbeef",
		MimeType:    "image/jpeg",
		CreatorName: "0xAbCd",
		CreatorAddr: "0xAbCd000000000000000000000000000000000000",
		Now:         time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildIPMetadataCarriesProvenance(t *testing.T) {
	meta := BuildIPMetadata(buildInput())
	if meta.Title != "Cat" {
		t.Fatalf("title mismatch: %s", meta.Title)
	}
	if meta.MediaHash != "deadbeef" || meta.ImageHash != "deadbeef" {
		t.Fatalf("media hash not carried: %+v", meta)
	}
	if len(meta.Creators) != 1 || meta.Creators[0].ContributionPercent != 100 {
		t.Fatalf("unexpected creators: %+v", meta.Creators)
	}
	if meta.AI == nil || !meta.AI.Generated || meta.AI.Prompt != "a cat in a hat" {
		t.Fatalf("ai provenance missing: %+v", meta.AI)
	}
}

func TestBuildIPMetadataWithoutPromptOmitsProvenance(t *testing.T) {
	in := buildInput()
	in.Prompt = ""
	meta := BuildIPMetadata(in)
	if meta.AI != nil {
		t.Fatalf("expected no ai block, got %+v", meta.AI)
	}
	if meta.Description == "" {
		t.Fatal("description should fall back to a default")
	}
}

func TestBuildNFTMetadataPointsAtIPRecord(t *testing.T) {
	meta := BuildNFTMetadata(buildInput(), "ipfs://bafymetadata")
	if meta.IPMetadataURI != "ipfs://bafymetadata" {
		t.Fatalf("ip metadata pointer missing: %+v", meta)
	}
	if meta.Name != "Cat" {
		t.Fatalf("name mismatch: %s", meta.Name)
	}
	if len(meta.Attributes) == 0 {
		t.Fatal("expected attributes")
	}
}

func TestValidateURIRejectsNonIPFSScheme(t *testing.T) {
	err := ValidateURI("ip metadata uri", "https://example.com/meta.json")
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if !strings.Contains(formatErr.Error(), "ipfs://") {
		t.Fatalf("error should name the required scheme: %v", formatErr)
	}
}

func TestValidateHashShapes(t *testing.T) {
	valid := "0x" + strings.Repeat("ab", 32)
	if err := ValidateHash("hash", valid); err != nil {
		t.Fatalf("valid hash rejected: %v", err)
	}
	cases := []string{
		strings.Repeat("ab", 33),               // no prefix
		"0x" + strings.Repeat("ab", 16),        // too short
		"0x" + strings.Repeat("ab", 31) + "zz", // non-hex
	}
	for _, c := range cases {
		if err := ValidateHash("hash", c); err == nil {
			t.Fatalf("expected rejection of %q", c)
		}
	}
}

func TestValidateReferencesChecksAllFour(t *testing.T) {
	good := "0x" + strings.Repeat("11", 32)
	if err := ValidateReferences("ipfs://a", good, "ipfs://b", good); err != nil {
		t.Fatalf("valid references rejected: %v", err)
	}
	if err := ValidateReferences("ipfs://a", good, "ipfs://b", "0x123"); err == nil {
		t.Fatal("short nft hash accepted")
	}
	if err := ValidateReferences("ipfs://a", good, "http://b", good); err == nil {
		t.Fatal("non-ipfs nft uri accepted")
	}
}
