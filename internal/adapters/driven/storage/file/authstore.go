// Package file implements the auth store as a TOML file in the conduit
// config directory. Each provider key maps to one table of string fields.
package file

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
)

// Ensure AuthStore implements the interface.
var _ driven.AuthStore = (*AuthStore)(nil)

// AuthStore is a file-based implementation of driven.AuthStore using TOML.
// Credentials are stored in a TOML file within the conduit config directory,
// one table per provider key.
type AuthStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]map[string]string
}

// NewAuthStore creates a new TOML-based auth store.
// If configDir is empty, defaults to ~/.conduit/auth.toml.
func NewAuthStore(configDir string) (*AuthStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, domain.IOErr(err)
		}
		configDir = filepath.Join(home, ".conduit")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, domain.IOErr(err)
	}

	s := &AuthStore{
		filePath: filepath.Join(configDir, "auth.toml"),
		data:     make(map[string]map[string]string),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load returns the details stored under key. The boolean reports whether the
// key existed.
func (s *AuthStore) Load(key string) (domain.AuthDetails, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make(domain.AuthDetails, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out, true, nil
}

// Save writes the details under key and persists immediately.
func (s *AuthStore) Save(key string, details domain.AuthDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := make(map[string]string, len(details))
	for k, v := range details {
		fields[k] = v
	}
	s.data[key] = fields
	return s.save()
}

// Delete removes the entry for key. Deleting a missing key is a no-op.
func (s *AuthStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.save()
}

// Path returns the auth file path.
func (s *AuthStore) Path() string {
	return s.filePath
}

// save writes the store to disk (caller must hold lock). The file is written
// to a temp path first and renamed into place so a crash mid-write never
// leaves a truncated credentials file.
func (s *AuthStore) save() error {
	data, err := toml.Marshal(s.data)
	if err != nil {
		return domain.SerializationErr(err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return domain.IOErr(err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		os.Remove(tmp)
		return domain.IOErr(err)
	}
	return nil
}

// load reads the auth file. A missing file starts the store empty.
func (s *AuthStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]map[string]string)
			return nil
		}
		return domain.IOErr(err)
	}

	var loaded map[string]map[string]string
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return domain.ParseErrorf("parse %s: %v", s.filePath, err)
	}
	if loaded == nil {
		loaded = make(map[string]map[string]string)
	}
	s.data = loaded
	return nil
}
