package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore writes uploads to a directory on the local filesystem. Refs are
// paths relative to the base directory.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a LocalStore rooted at baseDir.
func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

// Save writes the upload under a uuid-based name, preserving the original
// extension, and returns the relative ref.
func (s *LocalStore) Save(_ context.Context, up *Upload) (string, error) {
	if up == nil || len(up.Content) == 0 {
		return "", fmt.Errorf("storage: empty upload")
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	name := uuid.NewString() + ext
	ref := filepath.ToSlash(filepath.Join("posts", name))
	abs := filepath.Join(s.baseDir, ref)

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}
	if err := os.WriteFile(abs, up.Content, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return ref, nil
}

// Delete removes the file for ref. A missing file is treated as already
// deleted.
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	// Refuse refs that escape the base directory.
	clean := filepath.Clean(filepath.FromSlash(ref))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("storage: invalid ref %q", ref)
	}
	err := os.Remove(filepath.Join(s.baseDir, clean))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}
