// Package settings persists the panel's settings through a host-supplied key-value store.
package settings

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store is the key-value storage the host supplies.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	// Persist schedules a save; several calls close together result in one write.
	Persist()
}

// FileStore is a Store backed by a JSON file with debounced writes.
type FileStore struct {
	path  string
	delay time.Duration

	mu     sync.Mutex
	values map[string]string
	timer  *time.Timer
	dirty  bool
}

// OpenFileStore loads path if it exists. A zero delay makes Persist write synchronously.
func OpenFileStore(path string, delay time.Duration) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		delay:  delay,
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) > 0 {
			if err := json.Unmarshal(data, &s.values); err != nil {
				return nil, fmt.Errorf("settings: could not decode %s: %w", path, err)
			}
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("settings: could not read %s: %w", path, err)
	}
	return s, nil
}

// Path returns the file the store writes to.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key in memory.
func (s *FileStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.dirty = true
}

// Persist schedules a write after the debounce delay, restarting any pending one.
func (s *FileStore) Persist() {
	if s.delay <= 0 {
		if err := s.Flush(); err != nil {
			log.Printf("Error saving settings: %v", err)
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		if err := s.Flush(); err != nil {
			log.Printf("Error saving settings: %v", err)
		}
	})
}

// Flush writes pending changes now.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: failed to marshal: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("settings: failed to create %s: %w", dir, err)
		}
	}
	// Write then rename so a crash never leaves a truncated file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("settings: failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("settings: failed to replace %s: %w", s.path, err)
	}
	s.dirty = false
	return nil
}

// Close flushes pending changes.
func (s *FileStore) Close() error {
	return s.Flush()
}
