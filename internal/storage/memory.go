// internal/storage/memory.go
package storage

import (
	"context"
	"sync"

	"shelfmate/internal/library"
)

// MemoryStore is an in-process record store used by tests and the offline
// console. It hands out clones so callers can never mutate the stored copy
// behind its back.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*library.UserRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*library.UserRecord)}
}

func (s *MemoryStore) GetRecord(_ context.Context, userID string) (*library.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok {
		return rec.Clone(), nil
	}
	return library.NewUserRecord(), nil
}

func (s *MemoryStore) SaveRecord(_ context.Context, userID string, rec *library.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[userID] = rec.Clone()
	return nil
}

func (s *MemoryStore) DeleteRecord(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
	return nil
}

// Len reports how many users have a stored record.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
