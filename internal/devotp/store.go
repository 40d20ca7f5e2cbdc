// Package devotp is the dev-only SMS gateway: codes are kept in memory by provider
// request id and read back through DevService.GetOTP instead of being sent by SMS.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds plain codes by request id for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores code for requestID until expiresAt.
	Put(ctx context.Context, requestID, code string, expiresAt time.Time)
	// Get returns the code for requestID if present and not expired. Returns ok false if missing or expired.
	Get(ctx context.Context, requestID string) (code string, ok bool)
	// Delete forgets requestID.
	Delete(ctx context.Context, requestID string)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev code store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores code for requestID until expiresAt and drops every expired entry,
// so codes that are never read do not accumulate.
func (s *MemoryStore) Put(ctx context.Context, requestID, code string, expiresAt time.Time) {
	now := s.nowF()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.m {
		if !e.expiresAt.After(now) {
			delete(s.m, id)
		}
	}
	s.m[requestID] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for requestID if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, requestID string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[requestID]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, requestID)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}

// Delete removes requestID if present.
func (s *MemoryStore) Delete(ctx context.Context, requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, requestID)
}
