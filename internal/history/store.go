package history

import (
	"log"
	"sort"
	"sync"

	"github.com/callpilot/callpilot-backend/internal/models"
)

// Store is the durable, append-only log of call attempts. Records are held
// newest-first in memory and re-persisted after every mutation. The in-memory
// copy stays authoritative for the session even when a persist fails.
type Store struct {
	mu        sync.RWMutex
	records   []*models.CallRecord // newest first
	persister Persister
}

// NewStore creates a store and loads any previously persisted history.
// A missing or corrupt backing file yields an empty history plus a warning,
// never a failure.
func NewStore(persister Persister) *Store {
	s := &Store{persister: persister}

	records, err := persister.Load()
	if err != nil {
		log.Printf("⚠️  Failed to load call history: %v", err)
		return s
	}
	s.records = records
	return s
}

// Append inserts a new record at the head of the history and persists.
// The store takes ownership of rec.
func (s *Store) Append(rec *models.CallRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append([]*models.CallRecord{rec}, s.records...)
	s.persistLocked()
}

// UpdateByCallID applies fn to the record with the given call ID and
// persists. Returns false when no record matches.
func (s *Store) UpdateByCallID(callID string, fn func(*models.CallRecord)) bool {
	if callID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.CallID == callID {
			fn(rec)
			s.persistLocked()
			return true
		}
	}
	return false
}

// UpdateByHistoryID applies fn to the record with the given history ID and
// persists. Used before a call ID has been assigned.
func (s *Store) UpdateByHistoryID(historyID string, fn func(*models.CallRecord)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.HistoryID == historyID {
			fn(rec)
			s.persistLocked()
			return true
		}
	}
	return false
}

// FindByCallID returns a copy of the record with the given call ID
func (s *Store) FindByCallID(callID string) (models.CallRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if callID == "" {
		return models.CallRecord{}, false
	}
	for _, rec := range s.records {
		if rec.CallID == callID {
			return copyRecord(rec), true
		}
	}
	return models.CallRecord{}, false
}

// FindByHistoryID returns a copy of the record with the given history ID
func (s *Store) FindByHistoryID(historyID string) (models.CallRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.HistoryID == historyID {
			return copyRecord(rec), true
		}
	}
	return models.CallRecord{}, false
}

// All returns copies of every record, newest first
func (s *Store) All() []models.CallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CallRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, copyRecord(rec))
	}
	return out
}

// GroupedByPhone returns the history grouped by phone number, each group
// ordered by descending timestamp
func (s *Store) GroupedByPhone() map[string][]models.CallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[string][]models.CallRecord)
	for _, rec := range s.records {
		groups[rec.PhoneNumber] = append(groups[rec.PhoneNumber], copyRecord(rec))
	}
	for _, calls := range groups {
		sort.Slice(calls, func(i, j int) bool {
			return calls[i].Timestamp.After(calls[j].Timestamp)
		})
	}
	return groups
}

// Len returns the number of recorded call attempts
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// persistLocked saves the full history. A failed save is a warning, not an
// error: the in-memory copy remains authoritative.
func (s *Store) persistLocked() {
	if err := s.persister.Save(s.records); err != nil {
		log.Printf("⚠️  Failed to persist call history: %v", err)
	}
}

func copyRecord(rec *models.CallRecord) models.CallRecord {
	out := *rec
	if rec.Transcript != nil {
		out.Transcript = make([]models.Turn, len(rec.Transcript))
		copy(out.Transcript, rec.Transcript)
	}
	if rec.CustomerInterested != nil {
		v := *rec.CustomerInterested
		out.CustomerInterested = &v
	}
	return out
}
