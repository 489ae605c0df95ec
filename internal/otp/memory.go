package otp

import (
	"context"
	"sync"
	"time"
)

type pending struct {
	code string
	exp  time.Time
}

// MemoryStore is the single-process fallback used when Redis is not
// reachable.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[uint64]pending
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[uint64]pending), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, userID uint64, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[userID] = pending{code: code, exp: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Take(_ context.Context, userID uint64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.codes[userID]
	if !ok {
		return "", false, nil
	}
	delete(s.codes, userID)
	if !s.now().Before(p.exp) {
		return "", false, nil
	}
	return p.code, true, nil
}
