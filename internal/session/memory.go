package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Used for development and tests. Expired
// sessions are evicted when read and swept on every Set.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]*memoryEntry
}

// NewMemoryStore returns a store whose entries expire after ttl of inactivity (0 disables expiry).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[string]*memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[sessionID]
	if !ok {
		return "", false, nil
	}
	if s.ttl > 0 && s.now().After(entry.expiresAt) {
		delete(s.data, sessionID)
		return "", false, nil
	}
	entry.expiresAt = s.now().Add(s.ttl)
	value, ok := entry.values[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID string, values map[string]string) error {
	if err := checkKeys(values); err != nil {
		return err
	}
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.ttl > 0 {
		for id, entry := range s.data {
			if now.After(entry.expiresAt) {
				delete(s.data, id)
			}
		}
	}
	s.data[sessionID] = &memoryEntry{values: copied, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}
