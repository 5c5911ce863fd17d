package redis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"peace-cake-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves stay in a local map; the engine's per-session locks
//     only work on in-process state.
//   - Redis holds a liveness marker per session (value: quiz id) so operators
//     can see which sessions an instance is hosting. The marker's TTL is
//     refreshed on every lookup, off the caller's goroutine.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session

	// markers tracks in-flight marker writes.
	markers sync.WaitGroup
}

const markerTimeout = time.Second

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Add(session *app.Session) error {
	s.mu.Lock()
	if _, ok := s.sessions[session.ID()]; ok {
		s.mu.Unlock()
		return fmt.Errorf("session %s already registered", session.ID())
	}
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), markerTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key(session.ID()), session.Snapshot().QuizID, s.ttl).Err(); err != nil {
		log.Printf("session %s: set liveness marker: %v", session.ID(), err)
	}
	return nil
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		s.markers.Add(1)
		go s.touch(sessionID)
	}
	return session, ok
}

// touch extends the liveness marker. Failures only cost visibility, so they
// are logged rather than surfaced to the lookup.
func (s *SessionStore) touch(sessionID string) {
	defer s.markers.Done()
	ctx, cancel := context.WithTimeout(context.Background(), markerTimeout)
	defer cancel()
	if err := s.client.Expire(ctx, s.key(sessionID), s.ttl).Err(); err != nil {
		log.Printf("session %s: refresh liveness marker: %v", sessionID, err)
	}
}

// Wait blocks until pending marker refreshes have finished.
func (s *SessionStore) Wait() {
	s.markers.Wait()
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
