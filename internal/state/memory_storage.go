package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps user states in process memory. Entries older than ttl are
// treated as absent.
type MemoryStorage struct {
	mu     sync.RWMutex
	states map[int64]*UserState
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStorage builds an in-process Storage. A non-positive ttl keeps states forever.
func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{
		states: make(map[int64]*UserState),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStorage) GetState(_ context.Context, userID int64) (*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok || s.expired(st) {
		return nil, ErrStateNotFound
	}
	return st.clone(), nil
}

func (s *MemoryStorage) SetState(_ context.Context, userID int64, state *UserState) error {
	state.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[userID] = state.clone()
	return nil
}

func (s *MemoryStorage) ClearState(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
	return nil
}

func (s *MemoryStorage) GetAllStates(_ context.Context) ([]*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*UserState, 0, len(s.states))
	for id, st := range s.states {
		if s.expired(st) {
			delete(s.states, id)
			continue
		}
		result = append(result, st.clone())
	}
	return result, nil
}

func (s *MemoryStorage) expired(st *UserState) bool {
	return s.ttl > 0 && s.now().Sub(st.UpdatedAt) > s.ttl
}

// WithClock replaces the timestamp source.
func (s *MemoryStorage) WithClock(now func() time.Time) *MemoryStorage {
	s.now = now
	return s
}
