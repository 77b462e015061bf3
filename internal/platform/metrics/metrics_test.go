package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ipmint/go-registrar/pkg/models"
)

func TestSetTracksRunsAndBytes(t *testing.T) {
	s := NewSet()
	s.ObserveRun(true)
	s.ObserveRun(false)
	s.ObserveRun(false)
	s.AddUploadedBytes(1024)
	s.AddUploadedBytes(-5)

	snap := s.Snapshot()
	if snap.RunsTotal != 3 || snap.RunsSucceeded != 1 || snap.RunsFailed != 2 {
		t.Fatalf("run counters wrong: %+v", snap)
	}
	if snap.UploadedBytes != 1024 {
		t.Fatalf("uploaded bytes wrong: %d", snap.UploadedBytes)
	}
	if snap.LastRunAt.IsZero() {
		t.Fatal("last run timestamp not set")
	}
}

func TestSetExpositionEndpoint(t *testing.T) {
	s := NewSet()
	s.ObserveRun(true)
	s.ObserveStage(models.StatusMinting, 1500*time.Millisecond)
	s.ObserveRPC("register_asset", true)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	text := string(body)
	for _, want := range []string{
		`ipmint_registration_runs_total{result="success"} 1`,
		`ipmint_stage_duration_seconds_count{stage="minting"} 1`,
		`ipmint_rpc_requests_total{method="register_asset",outcome="ok"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("exposition missing %q in:\n%s", want, text)
		}
	}
}

func TestTwoSetsDoNotCollide(t *testing.T) {
	a := NewSet()
	b := NewSet()
	a.ObserveRun(true)
	if b.Snapshot().RunsTotal != 0 {
		t.Fatal("registries must be independent")
	}
}
