package idempotency

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a process local Store for single instance deployments and tests.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	locks  map[string]time.Time
	values map[string]entry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:    ttl,
		now:    time.Now,
		locks:  make(map[string]time.Time),
		values: make(map[string]entry),
	}
}

// WithClock replaces the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := lockKey(scope, key)
	now := s.now()
	s.purgeExpired(now)
	if expiresAt, ok := s.locks[k]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.locks[k] = now.Add(s.ttl)
	return true, nil
}

func (s *MemoryStore) Unlock(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, lockKey(scope, key))
	return nil
}

func (s *MemoryStore) Remember(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpired(now)
	s.values[valueKey(scope, key)] = entry{value: value, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := valueKey(scope, key)
	e, ok := s.values[k]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.values, k)
		return "", false, nil
	}
	return e.value, true, nil
}

// purgeExpired drops locks and values whose ttl has passed. Callers hold mu.
func (s *MemoryStore) purgeExpired(now time.Time) {
	for k, expiresAt := range s.locks {
		if !now.Before(expiresAt) {
			delete(s.locks, k)
		}
	}
	for k, e := range s.values {
		if !now.Before(e.expiresAt) {
			delete(s.values, k)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
