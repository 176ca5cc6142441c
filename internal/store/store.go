// Package store is the persisted key-value layer the core writes its JSON
// records through. Each logical key maps to one file under the data
// directory; writes replace the file atomically. A missing or corrupt file
// never fails a read: callers get their fallback value back so first runs
// and damaged data degrade to defaults instead of crashing startup.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("store: key not found")

type Store struct {
	root string
	log  *slog.Logger
	mu   sync.Mutex
}

// Open prepares the data directory and returns a store rooted there.
func Open(root string, log *slog.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{root: root, log: log}, nil
}

// Get unmarshals the record under key into v. Returns ErrNotFound for a
// missing key and a wrapped error for unreadable or malformed data; in the
// malformed case v is left untouched so the caller's default survives.
func (s *Store) Get(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// GetOr loads key into v, falling back silently on a missing key and with
// a warning on corrupt data. v keeps its prior (default) value on fallback.
func (s *Store) GetOr(key string, v any) {
	err := s.Get(key, v)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
	default:
		if s.log != nil {
			s.log.Warn("store: falling back to defaults", "key", key, "err", err)
		}
	}
}

// Put marshals v and atomically replaces the record under key.
func (s *Store) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	tmp, err := os.CreateTemp(s.root, key+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// Delete removes the record under key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, key+".json")
}
