package session

import (
	"context"
	"sync"
	"time"

	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/rite2rise/web-bff/internal/logger"
)

// Store keeps one Session per user id in memory. Sessions idle longer than
// the TTL are evicted by Run.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session of id.ID, creating it on first use. A newer token
// for the same user replaces the stored one.
func (s *Store) Get(id domain.Identity, token string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[id.ID]; ok {
		sess.touch(id, token, now)
		return sess
	}

	sess := New(id, token)
	sess.lastSeen = now
	s.sessions[id.ID] = sess
	activeSessions.Inc()
	return sess
}

func (s *Store) Lookup(userID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Remove drops the session of userID, e.g. on logout.
func (s *Store) Remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(userID)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the TTL. Sessions with an action
// in flight are kept. It returns the number evicted.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for userID, sess := range s.sessions {
		idle, busy := sess.idleSince(now)
		if busy || idle < s.ttl {
			continue
		}
		s.removeLocked(userID)
		evicted++
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logger.Log.Debug().Int("evicted", n).Int("remaining", s.Len()).Msg("session sweep")
			}
		}
	}
}

func (s *Store) removeLocked(userID string) {
	sess, ok := s.sessions[userID]
	if !ok {
		return
	}
	sess.detach()
	delete(s.sessions, userID)
	activeSessions.Dec()
}
