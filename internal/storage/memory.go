// Package storage provides session store implementations.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/logger"
	"github.com/hammamikhairi/mise/internal/session"
)

// Compile-time interface check.
var _ session.Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory session store. Safe for concurrent access.
// Sessions live only as long as the process; nothing is written to disk.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	log      *logger.Logger
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*session.Session),
		log:      log,
	}
}

// Save stores a session. Overwrites if the id already exists.
func (s *MemoryStore) Save(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("saving session %s (recipe=%s)", sess.ID(), sess.Recipe().ID)
	s.sessions[sess.ID()] = sess
	return nil
}

// Load retrieves a session by ID.
func (s *MemoryStore) Load(ctx context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		s.log.Debug("session not found: %s", id)
		return nil, domain.ErrNotFound
	}
	return sess, nil
}

// Delete removes a session by ID. It does not close the session.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sessions, id)
	s.log.Debug("deleted session %s", id)
	return nil
}

// ListActive returns every session that has not been closed, ordered by id.
func (s *MemoryStore) ListActive(ctx context.Context) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*session.Session
	for _, sess := range s.sessions {
		if sess.Status() != domain.SessionClosed {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	s.log.Debug("listing active sessions, count=%d", len(out))
	return out, nil
}
