package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage is a durable string key/value store for session state.
type Storage interface {
	Get(key string) string
	Set(key, value string) error
	Remove(key string) error
}

// FileStorage persists keys as a JSON object in a single file.
type FileStorage struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// NewFileStorage opens or creates the store at path.
func NewFileStorage(path string) (*FileStorage, error) {
	fs := &FileStorage{path: path, values: map[string]string{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fs.values); err != nil {
			return nil, fmt.Errorf("parse session file: %w", err)
		}
	}
	return fs, nil
}

func (fs *FileStorage) Get(key string) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.values[key]
}

func (fs *FileStorage) Set(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.values[key] = value
	return fs.flush()
}

func (fs *FileStorage) Remove(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.values, key)
	return fs.flush()
}

func (fs *FileStorage) flush() error {
	data, err := json.MarshalIndent(fs.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// MemoryStorage is an in-memory Storage for tests.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (ms *MemoryStorage) Get(key string) string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.values[key]
}

func (ms *MemoryStorage) Set(key, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.values[key] = value
	return nil
}

func (ms *MemoryStorage) Remove(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.values, key)
	return nil
}
