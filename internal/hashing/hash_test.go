package hashing

import (
	"strings"
	"testing"
)

func TestSHA256HexKnownVector(t *testing.T) {
	got := SHA256Hex([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("sha256 mismatch: got %s want %s", got, want)
	}
}

func TestKeccakOfJSONShape(t *testing.T) {
	h, err := KeccakOfJSON(map[string]any{"title": "Cat"})
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(h, "0x") {
		t.Fatalf("missing 0x prefix: %s", h)
	}
	if len(h) != 66 {
		t.Fatalf("expected 66 chars, got %d (%s)", len(h), h)
	}
}

func TestKeccakOfJSONIgnoresKeyOrder(t *testing.T) {
	a, err := KeccakOfJSON(map[string]any{"a": 1, "b": "x", "c": []any{1, 2}})
	if err != nil {
		t.Fatalf("hash a failed: %v", err)
	}
	b, err := KeccakOfJSON(map[string]any{"c": []any{1, 2}, "b": "x", "a": 1})
	if err != nil {
		t.Fatalf("hash b failed: %v", err)
	}
	if a != b {
		t.Fatalf("hash depends on key order: %s vs %s", a, b)
	}
}

func TestKeccakOfJSONStructAndMapAgree(t *testing.T) {
	type doc struct {
		Title string `json:"title"`
		Count int    `json:"count"`
	}
	// Struct field order differs from lexicographic key order on purpose.
	fromStruct, err := KeccakOfJSON(doc{Title: "Cat", Count: 3})
	if err != nil {
		t.Fatalf("hash struct failed: %v", err)
	}
	fromMap, err := KeccakOfJSON(map[string]any{"count": 3, "title": "Cat"})
	if err != nil {
		t.Fatalf("hash map failed: %v", err)
	}
	if fromStruct != fromMap {
		t.Fatalf("struct and map canonical hashes differ: %s vs %s", fromStruct, fromMap)
	}
}

func TestCanonicalJSONOutput(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{
		"b":   []any{true, nil},
		"a":   "x",
		"num": 10,
	})
	if err != nil {
		t.Fatalf("canonical failed: %v", err)
	}
	want := `{"a":"x","b":[true,null],"num":10}`
	if string(got) != want {
		t.Fatalf("canonical form mismatch: got %s want %s", got, want)
	}
}

func TestCanonicalJSONPreservesLargeIntegers(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{"id": uint64(18446744073709551615)})
	if err != nil {
		t.Fatalf("canonical failed: %v", err)
	}
	if string(got) != `{"id":18446744073709551615}` {
		t.Fatalf("large integer was mangled: %s", got)
	}
}
