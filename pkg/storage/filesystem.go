package storage

import (
	"context"
	"fmt"
	"os"
)

// LocalStorage serves media kept on disk under MEDIA_ROOT.
type LocalStorage struct {
	baseDir string
	baseURL string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, baseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./images"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, baseURL: baseURL}, nil
}

// URL returns the public URL of a stored file.
func (s *LocalStorage) URL(name string) string {
	return joinURL(s.baseURL, name)
}

// Check verifies the media root is writable.
func (s *LocalStorage) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.baseDir, ".ready-*")
	if err != nil {
		return fmt.Errorf("media root %s not writable: %w", s.baseDir, err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	return os.Remove(name)
}
