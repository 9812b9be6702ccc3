package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes artifacts below a directory. Locations are file paths.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return p, nil
}

func (s *LocalStore) Get(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.contains(location) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(location)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	p := filepath.Join(s.dir, filepath.FromSlash(key))
	if !s.contains(p) {
		return "", fmt.Errorf("artifact key %q escapes the store", key)
	}
	return p, nil
}

// contains rejects locations outside the store directory.
func (s *LocalStore) contains(p string) bool {
	rel, err := filepath.Rel(filepath.Clean(s.dir), filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
