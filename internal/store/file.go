package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore is a Store persisted as a single YAML document. Every write
// rewrites the file atomically.
type FileStore struct {
	*MemoryStore

	path string
	wmu  sync.Mutex
}

// OpenFileStore loads path if it exists. A missing file yields an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	fsx := &FileStore{MemoryStore: NewMemoryStore(), path: path}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fsx, nil
	case err != nil:
		return nil, fmt.Errorf("read state file: %w", err)
	}

	data := make(map[string]yaml.Node)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", path, err)
	}
	fsx.data = data
	return fsx, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Set(key string, v any) error {
	if err := s.MemoryStore.Set(key, v); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStore) Delete(key string) error {
	if err := s.MemoryStore.Delete(key); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStore) flush() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	raw, err := yaml.Marshal(s.snapshot())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
