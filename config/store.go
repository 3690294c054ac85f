package config

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Store holds the current Config and reloads it when the file changes
// on disk. Readers only contend with the pointer swap itself; they
// always observe either the old or the new Config in full.
type Store struct {
	path     string
	resolver StationResolver

	mu      sync.RWMutex
	current *Config
	mtime   time.Time
}

// NewStore loads the initial configuration, failing fast on any error:
// the process must not start with an invalid config.
func NewStore(path string, resolver StationResolver) (*Store, error) {
	cfg, err := Load(path, resolver)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, resolver: resolver, current: cfg}
	if info, err := os.Stat(path); err == nil {
		s.mtime = info.ModTime()
	}
	return s, nil
}

// Current returns the currently held configuration.
func (s *Store) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// CheckAndReload re-parses the file if its modification time is newer
// than the last load. On success the new Config is swapped in and
// changed=true is returned; on failure the previous Config is retained
// and the error reported without crashing.
func (s *Store) CheckAndReload() (changed bool, err error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return false, fmt.Errorf("stat config: %w", err)
	}

	s.mu.RLock()
	last := s.mtime
	s.mu.RUnlock()
	if !info.ModTime().After(last) {
		return false, nil
	}

	cfg, err := Load(s.path, s.resolver)
	if err != nil {
		// Record the mtime anyway so a broken file is not re-parsed
		// every tick until it changes again.
		s.mu.Lock()
		s.mtime = info.ModTime()
		s.mu.Unlock()
		return false, err
	}

	s.mu.Lock()
	s.current = cfg
	s.mtime = info.ModTime()
	s.mu.Unlock()
	return true, nil
}

// Path returns the watched file path.
func (s *Store) Path() string { return s.path }
