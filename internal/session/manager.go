package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sagerenn/dictd/internal/cache"
	"github.com/sagerenn/dictd/internal/dispatch"
	"github.com/sagerenn/dictd/internal/observability"
)

// Manager owns the live sessions. A session is closed ttl after it was
// created, or earlier when maxSessions newer sessions push it out.
type Manager struct {
	fetcher  dispatch.Fetcher
	log      *slog.Logger
	sessions *cache.Cache[string, *Session]
	// closing tracks sessions closed by the evict callback.
	closing sync.WaitGroup
}

func NewManager(fetcher dispatch.Fetcher, maxSessions int, ttl time.Duration, logger *slog.Logger) *Manager {
	m := &Manager{
		fetcher: fetcher,
		log:     logger.With("component", "sessions"),
	}
	m.sessions = cache.NewWithEvict(maxSessions, ttl, func(id string, s *Session) {
		observability.SessionsActive.Add(-1)
		m.log.Debug("session evicted", slog.String("session_id", id))
		// Evictions run under the cache lock.
		m.closing.Add(1)
		go func() {
			defer m.closing.Done()
			s.Close()
		}()
	})
	return m
}

func (m *Manager) Create() *Session {
	id := uuid.NewString()
	s := New(id, m.fetcher, m.log)
	m.sessions.Set(id, s)
	observability.SessionsActive.Add(1)
	m.log.Info("session created", slog.String("session_id", id))
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	s, ok := m.sessions.Get(id)
	if !ok {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	m.sessions.Remove(id)
	s.Close()
	return nil
}

func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Close closes every session, expired ones included, and waits for their
// fetches to stop.
func (m *Manager) Close() {
	m.sessions.Purge()
	m.closing.Wait()
}
