package memory

import (
	"context"
	"sync"

	"github.com/voyago/parley/pkg/domain"
)

// Store implements ports.SessionStore in memory. This is the default session
// directory: records live only in process memory and vanish on restart.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// Save persists the session record in memory.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	// Copy so callers can't mutate stored state through the pointer.
	copied := *session

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.ID] = &copied
	return nil
}

// Load retrieves the session record from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	ret := *session
	return &ret, nil
}

// Delete removes the session record.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
