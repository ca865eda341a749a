// Package fs provides a filesystem implementation of the storage.Backend
// interface. Objects are plain files directly under a base directory, one
// file per key.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/elanexo/audio-backend/internal/storage"
)

// Backend stores blobs as files under a base directory.
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend.
type Config struct {
	BaseDir string // base directory for storing files
}

// New creates a filesystem storage backend, creating the base directory if
// it does not exist.
func New(cfg Config) (*Backend, error) {
	if cfg.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &Backend{baseDir: cfg.BaseDir}, nil
}

// path maps a validated key to its on-disk location.
func (b *Backend) path(key string) (string, error) {
	if err := storage.SafeKey(key); err != nil {
		return "", err
	}
	return filepath.Join(b.baseDir, key), nil
}

// Exists reports whether a file is stored under key.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	p, err := b.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WriteExclusive creates the file with O_EXCL so two writers racing on the
// same key cannot both win; exactly one claims it, the rest see ErrExists.
func (b *Backend) WriteExclusive(ctx context.Context, key string, r io.Reader) (int64, error) {
	p, err := b.path(key)
	if err != nil {
		return 0, err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return 0, storage.ErrExists
		}
		return 0, fmt.Errorf("create %s: %w", key, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// Partial writes are not left behind; the key must stay allocatable.
		os.Remove(p)
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	return n, nil
}

// Download opens the file for reading and reports its size.
func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, storage.ErrNotFound
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Delete removes the file under key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return err
	}
	return nil
}
