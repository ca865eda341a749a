// Package memory provides an in-memory implementation of the
// storage.Backend interface, used by tests and ephemeral deployments.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/elanexo/audio-backend/internal/storage"
)

// Backend keeps blobs in a map guarded by a mutex.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates an empty in-memory storage backend.
func New() *Backend {
	return &Backend{objects: make(map[string][]byte)}
}

// Exists reports whether an object is stored under key.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	if err := storage.SafeKey(key); err != nil {
		return false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.objects[key]
	return ok, nil
}

// WriteExclusive stores the object iff the key is free. The check and the
// insert happen under one lock, matching the fs backend's O_EXCL semantics.
func (b *Backend) WriteExclusive(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := storage.SafeKey(key); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; ok {
		return 0, storage.ErrExists
	}
	b.objects[key] = data
	return int64(len(data)), nil
}

// Download opens the object for reading and reports its size.
func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	if err := storage.SafeKey(key); err != nil {
		return nil, 0, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, 0, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// Delete removes the object under key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := storage.SafeKey(key); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(b.objects, key)
	return nil
}
