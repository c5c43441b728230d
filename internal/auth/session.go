package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/recordroom/internal/services"
)

// Session is the persisted authenticated state: the bearer token and the
// identity it belongs to. No valid token means no playback, so invalidating a
// session cascades into tearing down any live playback client.
type Session struct {
	AccessToken string         `json:"access_token"`
	User        *services.User `json:"user"`
}

// SessionStore persists the session as a single JSON file so it survives
// restarts. The original stored token and user under separate keys; a single
// atomically-replaced file gives the both-or-neither restore behavior directly.
type SessionStore struct {
	path string
}

// NewSessionStore creates a SessionStore rooted at dir.
func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{path: filepath.Join(dir, "session.json")}
}

// Restore reads the persisted session. Returns nil (no error) when no session
// exists or the stored state is incomplete; a half-written session is treated
// as absent rather than surfaced.
func (s *SessionStore) Restore() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, nil
	}
	if session.AccessToken == "" || session.User == nil || session.User.ID == "" {
		return nil, nil
	}

	return &session, nil
}

// Save persists the token and user together via a temp file and rename.
func (s *SessionStore) Save(token string, user *services.User) error {
	if token == "" || user == nil {
		return fmt.Errorf("session requires both token and user")
	}

	data, err := json.MarshalIndent(Session{AccessToken: token, User: user}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace session: %w", err)
	}

	return nil
}

// Invalidate clears the persisted session. Called whenever a downstream
// request fails with an authorization error; afterwards every dependent must
// treat the user as logged out.
func (s *SessionStore) Invalidate() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
