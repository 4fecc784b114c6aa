// Package session is a minimal in-memory cookie session store used by the
// example servers to give CSRF tokens a session to bind to.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const CookieName = "session_id"

type Session struct {
	ID        string
	CreatedAt time.Time
	Values    map[string]string
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	secure   bool
}

func NewStore(secure bool) *Store {
	return &Store{sessions: make(map[string]*Session), secure: secure}
}

// Get returns the session referenced by the request cookie, if it exists.
func (s *Store) Get(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[c.Value]
	return sess, ok
}

// Start creates a new session, replacing any previous one, and sets its cookie.
func (s *Store) Start(w http.ResponseWriter, r *http.Request) *Session {
	s.Destroy(w, r)

	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Values:    make(map[string]string),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// Destroy forgets the request's session and expires its cookie.
func (s *Store) Destroy(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.sessions, c.Value)
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1})
}

// SessionIdentifier returns the id of a known session, or "" otherwise,
// so that forged session cookies do not bind tokens.
func (s *Store) SessionIdentifier(r *http.Request) string {
	if sess, ok := s.Get(r); ok {
		return sess.ID
	}
	return ""
}
