package keys

import (
	"errors"
	"sort"
	"sync"
)

// MemStore is an in-memory KeyStorage for ephemeral use and tests.
type MemStore struct {
	mu   sync.RWMutex
	recs map[string]*KeyRecord
}

func NewMemStore() *MemStore {
	return &MemStore{recs: make(map[string]*KeyRecord)}
}

func (s *MemStore) Save(rec *KeyRecord) error {
	if rec == nil {
		return errors.New("keys: nil record")
	}
	if err := CheckKeyID(rec.KeyID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.KeyID] = rec.Clone()
	return nil
}

func (s *MemStore) Load(keyID string) (*KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[keyID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemStore) Delete(keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[keyID]; !ok {
		return ErrNotFound
	}
	delete(s.recs, keyID)
	return nil
}

func (s *MemStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.recs))
	for id := range s.recs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
