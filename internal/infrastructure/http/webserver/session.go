// Package webserver provides session management for the web frontend
package webserver

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/glucomeal/web/internal/domain/chat"
	"github.com/glucomeal/web/internal/domain/profile"
	"github.com/glucomeal/web/internal/infrastructure/config"
)

// Session is the per-browser state: the backend session cookie captured at
// login, the in-memory metrics record, and the chat transcript. None of it
// is a source of truth; everything durable lives in the backend.
//
// Credentials are read and rewritten by concurrent requests from the same
// browser (an HTMX send racing a logout), so they live behind accessors.
// The Metrics pointer is fixed at creation; the store locks internally.
type Session struct {
	ID         string
	Metrics    *profile.Store
	Transcript *chat.Transcript
	CreatedAt  time.Time
	ExpiresAt  time.Time

	mu            sync.Mutex
	userID        int64
	backendCookie string
}

// Authenticated reports whether the session holds backend credentials
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID != 0 && s.backendCookie != ""
}

// UserID returns the signed-in user id, or zero
func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// BackendCookie returns the backend credential captured at login
func (s *Session) BackendCookie() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backendCookie
}

// SignIn records the backend credentials after a successful login
func (s *Session) SignIn(userID int64, backendCookie string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.backendCookie = backendCookie
	s.Transcript.Reset()
}

// Clear drops credentials and session state
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = 0
	s.backendCookie = ""
	s.Metrics.Reset()
	s.Transcript.Reset()
}

// WithTranscript runs fn with the transcript locked. Concurrent sends from
// the same browser serialize here.
func (s *Session) WithTranscript(fn func(t *chat.Transcript)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.Transcript)
}

// SessionStore manages frontend sessions
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	config   *config.Config
	logger   *zap.Logger
}

// NewSessionStore creates a new session store and starts expiry cleanup
func NewSessionStore(cfg *config.Config, logger *zap.Logger) *SessionStore {
	store := &SessionStore{
		sessions: make(map[string]*Session),
		config:   cfg,
		logger:   logger,
	}

	go store.cleanupExpired()

	return store
}

// Get retrieves the session referenced by the request cookie
func (s *SessionStore) Get(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(s.config.Session.CookieName)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	session, exists := s.sessions[cookie.Value]
	s.mu.RUnlock()

	if !exists {
		return nil, http.ErrNoCookie
	}

	if time.Now().After(session.ExpiresAt) {
		s.Delete(cookie.Value)
		return nil, http.ErrNoCookie
	}

	return session, nil
}

// New creates a fresh session
func (s *SessionStore) New() *Session {
	session := &Session{
		ID:         generateSessionID(),
		Metrics:    profile.NewStore(),
		Transcript: &chat.Transcript{},
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(s.config.Session.TTL),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Save writes the session cookie to the response
func (s *SessionStore) Save(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.Session.CookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
	})
}

// Delete removes a session
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// cleanupExpired removes expired sessions periodically
func (s *SessionStore) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for id, session := range s.sessions {
			if now.After(session.ExpiresAt) {
				delete(s.sessions, id)
				s.logger.Debug("cleaned up expired session", zap.String("session_id", id))
			}
		}
		s.mu.Unlock()
	}
}

func generateSessionID() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
