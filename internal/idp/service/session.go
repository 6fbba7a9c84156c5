package service

import (
	"sync"
	"time"

	"github.com/aussiebroadwan/nullprofile/pkg/cryptox"
)

// Session is a browser session. It is the ceremony context for challenges
// and the owner of authorization transactions. Values handed out by the
// SessionStore are copies.
type Session struct {
	ID              string
	UserID          string
	AuthenticatedAt *time.Time
	CreatedAt       time.Time
	LastSeenAt      time.Time
}

// IsAuthenticated reports whether a user has completed a ceremony in this
// session.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != ""
}

// SessionStore keeps browser sessions in memory with an idle timeout.
type SessionStore struct {
	IdleTimeout time.Duration
	Now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionStore(idleTimeout time.Duration) *SessionStore {
	if idleTimeout <= 0 {
		idleTimeout = DefaultSessionTimeout
	}
	return &SessionStore{
		IdleTimeout: idleTimeout,
		Now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Create starts an anonymous session with a 256-bit random id.
func (s *SessionStore) Create() (*Session, error) {
	id, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	sess := &Session{ID: id, CreatedAt: now, LastSeenAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = sess
	cp := *sess
	return &cp, nil
}

// Get returns the session and refreshes its idle timer. Idle sessions are
// removed and reported as missing.
func (s *SessionStore) Get(id string) (*Session, bool) {
	now := s.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.idle(sess, now) {
		delete(s.sessions, id)
		return nil, false
	}

	sess.LastSeenAt = now
	cp := *sess
	return &cp, true
}

// Authenticate records userID as the session's user.
func (s *SessionStore) Authenticate(id, userID string) (*Session, error) {
	now := s.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.idle(sess, now) {
		return nil, ErrUnauthenticated
	}

	sess.UserID = userID
	sess.AuthenticatedAt = &now
	sess.LastSeenAt = now
	cp := *sess
	return &cp, nil
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *SessionStore) Destroy(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

// Sweep removes idle sessions and returns their ids so dependent state can
// be released.
func (s *SessionStore) Sweep(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, sess := range s.sessions {
		if s.idle(sess, now) {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}

func (s *SessionStore) idle(sess *Session, now time.Time) bool {
	return !now.Before(sess.LastSeenAt.Add(s.IdleTimeout))
}
