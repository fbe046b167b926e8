package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage is the durable local key-value store backing the resend cooldown.
// It plays the role browser local storage plays for the web form.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// FileStorage persists keys as a small JSON document on disk.
type FileStorage struct {
	path string

	mu     sync.Mutex
	loaded bool
	values map[string]string
}

// NewFileStorage constructs a FileStorage at the given path. The file is
// created lazily on first Set.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultStoragePath places the state file under the user config dir.
func DefaultStoragePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("client storage: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "contactctl", "state.json"), nil
}

// Get implements Storage. A missing or unreadable file is an empty store.
func (s *FileStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	value, ok := s.values[key]
	return value, ok
}

// Set implements Storage and writes through to disk.
func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	s.values[key] = value

	raw, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("client storage: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("client storage: mkdir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("client storage: write: %w", err)
	}
	return nil
}

func (s *FileStorage) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.values = make(map[string]string)

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(raw, &s.values)
}

// MemoryStorage is an in-process Storage for tests.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStorage constructs an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get implements Storage.
func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// Set implements Storage.
func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
