// Package storage abstracts where uploaded source media lives. The pipeline
// only needs existence checks and best-effort deletion; upload mechanics are
// owned elsewhere.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is the narrow contract the job pipeline has with uploaded media.
type Store interface {
	FileExists(path string) bool
	DeleteFile(path string) error
	// Resolve maps a stored file name to its local path.
	Resolve(name string) string
}

// LocalStore keeps uploaded media on the local filesystem under a single
// directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (s *LocalStore) DeleteFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *LocalStore) Resolve(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}
