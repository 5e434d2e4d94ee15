// Package credentials saves the phonebook auth key between runs.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	fileName = "credentials.yaml"
	// EnvKey overrides the saved key.
	EnvKey = "PHONEBOOK_KEY"
)

type Source string

const (
	SourceEnv  Source = "env"
	SourceFile Source = "file"
)

type Key struct {
	Key       string    `yaml:"key"`
	Server    string    `yaml:"server,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
	Source    Source    `yaml:"-"`
}

// Store reads and writes the credentials file in Dir.
type Store struct {
	Dir string
}

// DefaultStore uses the phonebook directory under the user config dir.
func DefaultStore() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("home: %w", err)
	}
	return &Store{Dir: filepath.Join(dir, "phonebook")}, nil
}

func (s *Store) path() string { return filepath.Join(s.Dir, fileName) }

// Load returns the key from PHONEBOOK_KEY or the credentials file.
// It returns nil, nil when neither is set.
func (s *Store) Load() (*Key, error) {
	if env := strings.TrimSpace(os.Getenv(EnvKey)); env != "" {
		return &Key{Key: env, Source: SourceEnv}, nil
	}

	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var k Key
	if err := yaml.Unmarshal(b, &k); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	k.Key = strings.TrimSpace(k.Key)
	if k.Key == "" {
		return nil, nil
	}
	k.Source = SourceFile
	return &k, nil
}

// Save writes key, remembering which server issued it.
func (s *Store) Save(key, server string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty key")
	}
	// owner-only, the key grants full access to its phonebook
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := yaml.Marshal(Key{Key: key, Server: server, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(s.path(), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Delete removes the credentials file. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}
