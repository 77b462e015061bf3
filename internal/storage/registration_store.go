// Package storage keeps the registration history on disk: every finished
// run, successful or not, as an immutable record.
package storage

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ipmint/go-registrar/internal/securestore"
	"ipmint/go-registrar/pkg/models"
)

var ErrRecordIDConflict = errors.New("registration record id conflict")

const historySchemaVersion = 1

// RegistrationStore is an append-oriented history of registration runs.
// Writes persist a full snapshot before mutating memory, so a failed write
// leaves the in-memory view unchanged.
type RegistrationStore struct {
	mu      sync.RWMutex
	path    string
	secret  string
	records map[string]models.RegistrationRecord
}

// NewRegistrationStore keeps history in memory only. Used by tests and by
// one-shot CLI runs that do not need persistence.
func NewRegistrationStore() *RegistrationStore {
	return &RegistrationStore{records: make(map[string]models.RegistrationRecord)}
}

func NewPersistentRegistrationStore(path string) (*RegistrationStore, error) {
	return NewEncryptedRegistrationStore(path, "")
}

// NewEncryptedRegistrationStore seals the snapshot with the given passphrase.
// An empty passphrase leaves the file as plain JSON.
func NewEncryptedRegistrationStore(path, passphrase string) (*RegistrationStore, error) {
	s := &RegistrationStore{
		path:    path,
		secret:  passphrase,
		records: make(map[string]models.RegistrationRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Append records one finished run. A zero ID gets a generated one, a zero
// CreatedAt gets the current time. The stored record is returned.
func (s *RegistrationStore) Append(rec models.RegistrationRecord) (models.RegistrationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		id, err := newRecordID()
		if err != nil {
			return models.RegistrationRecord{}, err
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.records[rec.ID]; exists {
		return models.RegistrationRecord{}, ErrRecordIDConflict
	}
	next := cloneRecordsMap(s.records)
	next[rec.ID] = rec
	if err := s.persistSnapshotLocked(next); err != nil {
		return models.RegistrationRecord{}, err
	}
	s.records = next
	return rec, nil
}

func (s *RegistrationStore) Get(id string) (models.RegistrationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// List returns records newest first.
func (s *RegistrationStore) List(limit, offset int) []models.RegistrationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RegistrationRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []models.RegistrationRecord{}
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return append([]models.RegistrationRecord(nil), out...)
}

func (s *RegistrationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *RegistrationStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	decoded := data
	if s.secret != "" {
		decoded, err = securestore.Open(s.secret, data)
		if err != nil {
			return fmt.Errorf("storage: open history snapshot: %w", err)
		}
	}

	var snapshot historySnapshot
	if err := json.Unmarshal(decoded, &snapshot); err != nil {
		return err
	}
	if snapshot.SchemaVersion > historySchemaVersion {
		return fmt.Errorf("storage: unsupported history schema version %d", snapshot.SchemaVersion)
	}
	if snapshot.Records != nil {
		s.records = snapshot.Records
	}
	return nil
}

type historySnapshot struct {
	SchemaVersion int                                  `json:"schema_version"`
	Records       map[string]models.RegistrationRecord `json:"records"`
}

func (s *RegistrationStore) persistSnapshotLocked(records map[string]models.RegistrationRecord) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(historySnapshot{SchemaVersion: historySchemaVersion, Records: records})
	if err != nil {
		return err
	}
	if s.secret != "" {
		data, err = securestore.Seal(s.secret, data)
		if err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o600)
}

func cloneRecordsMap(in map[string]models.RegistrationRecord) map[string]models.RegistrationRecord {
	out := make(map[string]models.RegistrationRecord, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func newRecordID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "reg_" + hex.EncodeToString(buf), nil
}
