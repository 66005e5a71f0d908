// Package session tracks which identity, if any, a browser session is
// signed in as, and carries one-shot flash messages between requests.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

// Identity is the authenticated principal of a session.
type Identity struct {
	UserID   int
	Username string
	Email    string
}

// Session is one browser session. A nil Identity means anonymous.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu       sync.Mutex
	identity *Identity
	flashes  []Flash
}

// Identity returns the signed-in identity or nil when anonymous.
func (s *Session) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Authenticated reports whether the session carries an identity.
func (s *Session) Authenticated() bool {
	return s.Identity() != nil
}

// Store keeps sessions in memory. Expired sessions are dropped lazily.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions:  make(map[string]*Session),
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// TTL returns the lifetime given to new sessions.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create starts a new session for identity, which may be nil.
func (s *Store) Create(identity *Identity) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if identity != nil {
		copied := *identity
		session.identity = &copied
	}

	s.mu.Lock()
	s.sessions[id] = session
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweepLocked(now)
	}
	s.mu.Unlock()

	return session, nil
}

func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if s.now().After(session.ExpiresAt) {
		s.Delete(id)
		return nil, false
	}
	return session, true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) sweepLocked(now time.Time) {
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	s.lastSweep = now
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
