package client

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenStore persists the reconnect token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
}

// FileTokenStore keeps the token in a file, created with owner-only
// permissions.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store at the given path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultTokenPath is the conventional token location.
func DefaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bingo/token"
	}
	return filepath.Join(home, ".bingo", "token")
}

// Load reads the token. A missing file is not an error; it just means
// the client has no identity yet.
func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token, creating the parent directory if needed.
func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0600)
}

// MemoryTokenStore holds the token in memory, for tests and throwaway
// connections.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}
