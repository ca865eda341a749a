// Package storage abstracts the blob store holding uploaded audio content.
//
// The service layer treats the store as a flat namespace of keys (resolved
// filenames). Exclusive creation is part of the contract so that unique-name
// allocation cannot race between an existence check and a write: a key is
// claimed by the single WriteExclusive call that succeeds on it.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Sentinel errors shared by all backends.
var (
	// ErrExists is returned by WriteExclusive when the key is already taken.
	ErrExists = errors.New("object already exists")

	// ErrNotFound is returned when no object is stored under the key.
	ErrNotFound = errors.New("object not found")

	// ErrUnsafeKey is returned for keys that could escape the store's
	// namespace (path separators, traversal elements, empty keys).
	ErrUnsafeKey = errors.New("unsafe object key")
)

// Backend defines the interface for blob storage backends.
type Backend interface {
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// WriteExclusive atomically creates the object iff the key is free and
	// returns the number of bytes written. ErrExists when the key is taken.
	WriteExclusive(ctx context.Context, key string, r io.Reader) (int64, error)

	// Download opens the object for reading and reports its size.
	Download(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Delete removes the object. ErrNotFound when absent.
	Delete(ctx context.Context, key string) error
}

// SafeKey validates that key cannot address anything outside the store's
// flat namespace. Backends call it before touching the key.
func SafeKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return ErrUnsafeKey
	}
	if strings.ContainsAny(key, "/\\") {
		return ErrUnsafeKey
	}
	return nil
}
