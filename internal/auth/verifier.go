package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// VerifierStore holds the pending code verifier between the authorization
// redirect and the token exchange.
//
// The slot is single-writer, single-reader: Put overwrites any previous
// verifier (only one login attempt is in flight at a time) and Take removes
// it, so a verifier can be consumed at most once.
type VerifierStore interface {
	Put(verifier string) error
	Take() (string, bool)
}

// MemoryVerifierStore is an in-process VerifierStore.
type MemoryVerifierStore struct {
	mu       sync.Mutex
	verifier string
}

func NewMemoryVerifierStore() *MemoryVerifierStore {
	return &MemoryVerifierStore{}
}

func (s *MemoryVerifierStore) Put(verifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifier = verifier
	return nil
}

func (s *MemoryVerifierStore) Take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.verifier
	s.verifier = ""
	return v, v != ""
}

// FileVerifierStore persists the pending verifier under the state directory so
// the exchange step can run in a separate process from the one that opened the
// browser.
type FileVerifierStore struct {
	mu   sync.Mutex
	path string
}

// NewFileVerifierStore creates a FileVerifierStore rooted at dir.
func NewFileVerifierStore(dir string) *FileVerifierStore {
	return &FileVerifierStore{path: filepath.Join(dir, "code_verifier")}
}

func (s *FileVerifierStore) Put(verifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, []byte(verifier), 0600); err != nil {
		return fmt.Errorf("failed to persist code verifier: %w", err)
	}
	return nil
}

func (s *FileVerifierStore) Take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	os.Remove(s.path)
	return string(data), len(data) > 0
}
