package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/callpilot/callpilot-backend/internal/models"
)

// Persister loads and saves the serialized call history. Load runs once at
// startup; Save runs synchronously after every mutation.
type Persister interface {
	Load() ([]*models.CallRecord, error)
	Save(records []*models.CallRecord) error
}

// FilePersister keeps the history as a JSON array in a single file.
// The store is the only writer, and writes go through a temp file + rename
// so a crash mid-write cannot leave a partial history behind.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister writing to dir/callHistory.json
func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{path: filepath.Join(dir, "callHistory.json")}
}

func (f *FilePersister) Load() ([]*models.CallRecord, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read call history: %w", err)
	}

	var records []*models.CallRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse call history: %w", err)
	}
	return records, nil
}

func (f *FilePersister) Save(records []*models.CallRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode call history: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write call history: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("write call history: %w", err)
	}
	return nil
}

// MemoryPersister keeps the serialized history in memory. Used in demo mode
// and in tests.
type MemoryPersister struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryPersister creates an empty in-memory persister
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (m *MemoryPersister) Load() ([]*models.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.data) == 0 {
		return nil, nil
	}
	var records []*models.CallRecord
	if err := json.Unmarshal(m.data, &records); err != nil {
		return nil, fmt.Errorf("parse call history: %w", err)
	}
	return records, nil
}

func (m *MemoryPersister) Save(records []*models.CallRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode call history: %w", err)
	}

	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}
