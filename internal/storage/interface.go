package storage

import (
	"context"
	"errors"
)

// PreferenceStore persists small per-installation preferences such as the
// user's override credential. The execution core only reads from it.
type PreferenceStore interface {
	// Initialize sets up the storage backend
	Initialize(ctx context.Context) error

	// Close closes the storage backend
	Close() error

	// Health checks if the storage backend is reachable
	Health(ctx context.Context) error

	// Name is the backend label used in logs and metrics
	Name() string

	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
	DeletePreference(ctx context.Context, key string) error
}

// ErrNotFound is returned when a key is not found
type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return "key not found: " + e.Key
}

// IsNotFound reports whether err (or anything it wraps) is an *ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}
