package history

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"sjsage522/promoradar/helpers"
	"sjsage522/promoradar/logger"
	"sjsage522/promoradar/pkg/errors"
)

// FileStore keeps the whole history in memory and rewrites one JSON file on Commit
type FileStore struct {
	path    string
	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
}

// OpenFileStore loads path. A missing or unreadable file starts an empty store.
func OpenFileStore(path string) *FileStore {
	s := &FileStore{path: path, entries: make(map[string]Entry)}
	log := logger.ForHistory()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Info().Str("path", path).Msg("No deal history yet, starting empty")
		return s
	case err != nil:
		log.Warn().Err(err).Str("path", path).Msg("Failed to read deal history, starting empty")
		return s
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Deal history is corrupt, starting empty")
		s.entries = make(map[string]Entry)
		return s
	}
	if s.entries == nil {
		s.entries = make(map[string]Entry)
	}
	log.Info().Str("path", path).Int("entries", len(s.entries)).Msg("Loaded deal history")
	return s
}

func (s *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *FileStore) Put(_ context.Context, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	s.dirty = true
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		s.dirty = true
	}
	return nil
}

// Iterate walks a copy of the entries, so fn may call back into the store
func (s *FileStore) Iterate(_ context.Context, fn func(key string, entry Entry) bool) error {
	s.mu.Lock()
	snapshot := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = v
	}
	s.mu.Unlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			break
		}
	}
	return nil
}

// Commit writes the history with write-temp-then-rename. A clean store is not rewritten.
func (s *FileStore) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errors.NewPersistence("failed to encode deal history", err)
	}
	if err := helpers.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return errors.NewPersistence("failed to write deal history", err)
	}
	s.dirty = false
	return nil
}

// Len returns the number of entries
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
