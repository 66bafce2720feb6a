// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"sync"
)

// =============================================================================
// STORE (THREAD-SAFE)
// =============================================================================

// Store holds the live configuration. Readers get copies, so a reload never
// changes settings under a turn that already resolved them.
type Store struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewStore wraps cfg. An empty path makes Update in-memory only.
func NewStore(cfg *Config, path string) *Store {
	if cfg == nil {
		cfg = Default()
	}
	return &Store{cfg: cfg.Clone(), path: path}
}

// OpenStore loads the configuration from the default locations. A file that
// fails to load is reported on stderr and defaults are used instead.
func OpenStore() *Store {
	cfg, path, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	return NewStore(cfg, path)
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Config returns a copy of the current configuration.
func (s *Store) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Settings resolves the current configuration for one turn.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Settings()
}

// Update applies fn to a copy, clamps it, persists it and then publishes it.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Clone()
	fn(next)
	next.Clamp()

	if s.path != "" {
		if err := Save(next, s.path); err != nil {
			return err
		}
	}
	s.cfg = next
	return nil
}

// Reload re-reads the backing file. A missing file keeps the current values.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}
	cfg, err := LoadFromPath(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}
