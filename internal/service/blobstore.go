package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// localBlobStore keeps media on the local filesystem and serves it
// through a static base URL. SignedURL does not actually sign: the
// deployment fronts the directory with its own access control, so the
// ttl only bounds how long the Redis-side cache keeps the link.
type localBlobStore struct {
	dir     string
	baseURL string
}

func NewLocalBlobStore(dir, baseURL string) BlobStore {
	return &localBlobStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *localBlobStore) Put(_ context.Context, key string, data []byte, _ string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write media file: %w", err)
	}

	return nil
}

func (s *localBlobStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrMediaNotFound
		}
		return "", fmt.Errorf("failed to stat media file: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

// resolve maps a blob key onto the storage directory, rejecting keys
// that would escape it.
func (s *localBlobStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.dir, cleaned), nil
}
