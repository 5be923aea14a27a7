package vault

import (
	"context"
	"sync"
)

// MemoryStore is a map-backed DocumentStore. It backs local development
// (STORE_BACKEND=memory) and the test suite; nothing persists across
// restarts.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]TokenRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]TokenRecord)}
}

func (s *MemoryStore) Get(ctx context.Context, pk string) (*TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.docs[pk]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, record *TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[record.PK]; ok {
		return ErrConflict
	}
	s.docs[record.PK] = *record
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, pk string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, pk)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, filter Filter) ([]TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TokenRecord
	for _, record := range s.docs {
		if filter.matches(&record) {
			out = append(out, record)
		}
	}
	return out, nil
}
