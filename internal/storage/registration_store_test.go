package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ipmint/go-registrar/pkg/models"
)

func TestRegistrationStoreAppendAndList(t *testing.T) {
	store := NewRegistrationStore()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		_, err := store.Append(models.RegistrationRecord{
			Title:     title,
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append %q: %v", title, err)
		}
	}

	list := store.List(0, 0)
	if len(list) != 3 {
		t.Fatalf("expected 3 records, got %d", len(list))
	}
	if list[0].Title != "third" || list[2].Title != "first" {
		t.Fatalf("list must be newest first, got %q..%q", list[0].Title, list[2].Title)
	}

	page := store.List(1, 1)
	if len(page) != 1 || page[0].Title != "second" {
		t.Fatalf("pagination broken: %+v", page)
	}
	if got := store.List(10, 99); len(got) != 0 {
		t.Fatalf("offset past end must return empty, got %d", len(got))
	}
}

func TestRegistrationStoreGeneratesIDAndTimestamp(t *testing.T) {
	store := NewRegistrationStore()
	rec, err := store.Append(models.RegistrationRecord{Success: false, Error: "boom"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !strings.HasPrefix(rec.ID, "reg_") {
		t.Fatalf("expected generated id, got %q", rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected generated timestamp")
	}
	if got, ok := store.Get(rec.ID); !ok || got.Error != "boom" {
		t.Fatalf("lookup by id failed: %+v ok=%v", got, ok)
	}
}

func TestRegistrationStoreRejectsDuplicateID(t *testing.T) {
	store := NewRegistrationStore()
	if _, err := store.Append(models.RegistrationRecord{ID: "reg_a"}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if _, err := store.Append(models.RegistrationRecord{ID: "reg_a"}); err != ErrRecordIDConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegistrationStorePersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "registrations.json")
	store, err := NewPersistentRegistrationStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	rec, err := store.Append(models.RegistrationRecord{Title: "persisted", IPID: "0xABC"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	reopened, err := NewPersistentRegistrationStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.Get(rec.ID)
	if !ok || got.Title != "persisted" || got.IPID != "0xABC" {
		t.Fatalf("record lost across restart: %+v ok=%v", got, ok)
	}
}

func TestRegistrationStoreEncryptedSnapshotUnreadableWithoutKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registrations.sealed")
	store, err := NewEncryptedRegistrationStore(path, "hunter2")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if _, err := store.Append(models.RegistrationRecord{Title: "sealed-secret"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(raw), "sealed-secret") {
		t.Fatal("plaintext leaked into sealed snapshot")
	}

	if _, err := NewEncryptedRegistrationStore(path, "wrong"); err == nil {
		t.Fatal("expected failure with wrong passphrase")
	}

	reopened, err := NewEncryptedRegistrationStore(path, "hunter2")
	if err != nil {
		t.Fatalf("reopen with key: %v", err)
	}
	if reopened.Count() != 1 {
		t.Fatalf("expected one record after reopen, got %d", reopened.Count())
	}
}

func TestRegistrationStoreRollbackOnPersistError(t *testing.T) {
	dir := t.TempDir()
	pathAsDir := filepath.Join(dir, "snapshot-as-dir")
	if err := os.MkdirAll(pathAsDir, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	store := &RegistrationStore{
		path:    pathAsDir, // directory path forces os.WriteFile error
		records: make(map[string]models.RegistrationRecord),
	}
	if _, err := store.Append(models.RegistrationRecord{Title: "doomed"}); err == nil {
		t.Fatal("expected persist error")
	}
	if store.Count() != 0 {
		t.Fatalf("memory must stay unchanged after persist failure, got %d", store.Count())
	}
}
