package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("storage: key not found")
	// ErrUnavailable wraps backend failures (network, disk, driver).
	ErrUnavailable = errors.New("storage: backend unavailable")
)

// Store is the get/set/delete surface shared by every backend.
type Store interface {
	// Get returns the blob under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the blob under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes every listed key. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by backends holding external resources.
type Closer interface {
	Close() error
}

// Ping checks s when it implements Pinger and reports healthy otherwise.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
