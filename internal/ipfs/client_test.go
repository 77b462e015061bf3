package ipfs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"
)

const testCID = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{
		baseURL: srv.URL,
		http:    srv.Client(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     slog.Default(),
	}
}

func TestUploadFileReturnsCID(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("server could not parse multipart form: %v", err)
		}
		_ = json.NewEncoder(w).Encode(addResponse{Name: "cat.jpg", Hash: testCID, Size: "123"})
	})

	res, err := client.UploadFile(context.Background(), "cat.jpg", []byte("image-bytes"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if res.CID != testCID {
		t.Fatalf("cid mismatch: %s", res.CID)
	}
	if gotPath != "/api/v0/add" {
		t.Fatalf("unexpected api path: %s", gotPath)
	}
}

func TestUploadFileRejectsEmptyPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty payload")
	})
	if _, err := client.UploadFile(context.Background(), "x", nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestUploadJSONSurfacesNodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "node overloaded", http.StatusInternalServerError)
	})
	_, err := client.UploadJSON(context.Background(), map[string]string{"a": "b"})
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestUploadRejectsInvalidCIDFromNode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(addResponse{Hash: "not-a-cid"})
	})
	if _, err := client.UploadFile(context.Background(), "x", []byte("data")); err == nil {
		t.Fatal("expected invalid cid error")
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/version" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"Version": "0.29.0"})
	})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping healthy node: %v", err)
	}

	broken := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
	})
	if err := broken.Ping(context.Background()); err == nil {
		t.Fatal("expected error from unhealthy node")
	}
}
