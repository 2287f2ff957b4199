// Package client holds the app state shared by every Consensus front end:
// the signed-in session, sign-in flow, category routing, photo submission,
// swipe voting and the live leaderboard.
package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/consensus/internal/logger"
	"github.com/abrezinsky/consensus/pkg/consensus"
)

// Session is the signed-in user as remembered by the app
type Session struct {
	Server      string    `yaml:"server"`
	Email       string    `yaml:"email"`
	UserID      string    `yaml:"user_id"`
	DisplayName string    `yaml:"display_name,omitempty"`
	AccessToken string    `yaml:"access_token"`
	ExpiresAt   time.Time `yaml:"expires_at"`
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// NewSession converts an API session
func NewSession(server, email string, s *consensus.Session) *Session {
	session := &Session{
		Server:      server,
		Email:       email,
		AccessToken: s.AccessToken,
		ExpiresAt:   s.ExpiresAt,
	}
	if s.User != nil {
		session.UserID = s.User.ID
		if s.User.DisplayName != nil {
			session.DisplayName = *s.User.DisplayName
		}
	}
	return session
}

// Persister saves the session between runs
type Persister interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// SessionStore is the observable current session. Listeners run
// synchronously on the goroutine that changed it.
type SessionStore struct {
	log     logger.Logger
	persist Persister

	mu        sync.Mutex
	current   *Session
	listeners map[int]func(*Session)
	nextID    int
}

// NewSessionStore creates a store and restores any saved session.
// persist may be nil for an in-memory store.
func NewSessionStore(log logger.Logger, persist Persister) *SessionStore {
	s := &SessionStore{
		log:       log,
		persist:   persist,
		listeners: make(map[int]func(*Session)),
	}
	if persist != nil {
		saved, err := persist.Load()
		if err != nil {
			log.Warn("Failed to restore session", "error", err)
		}
		s.current = saved
	}
	return s
}

// Current returns the session, or nil when signed out
func (s *SessionStore) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the session and notifies listeners
func (s *SessionStore) Set(session *Session) {
	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Save(session); err != nil {
			s.log.Warn("Failed to save session", "error", err)
		}
	}
	s.notify(session)
}

// Clear signs out and notifies listeners
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Clear(); err != nil {
			s.log.Warn("Failed to clear session", "error", err)
		}
	}
	s.notify(nil)
}

// Subscribe registers fn for session changes and returns a function that
// removes it
func (s *SessionStore) Subscribe(fn func(*Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *SessionStore) notify(session *Session) {
	s.mu.Lock()
	fns := make([]func(*Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(session)
	}
}

// FileSessionStore persists the session as YAML
type FileSessionStore struct {
	Path string
}

// DefaultSessionPath returns ~/.config/consensus/session.yaml
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "consensus", "session.yaml"), nil
}

// Load reads the saved session. A missing file means signed out.
func (f FileSessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	if s.AccessToken == "" {
		return nil, nil
	}
	return &s, nil
}

// Save writes the session, readable only by the owner
func (f FileSessionStore) Save(s *Session) error {
	if s == nil {
		return f.Clear()
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o600)
}

// Clear removes the saved session
func (f FileSessionStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
