package storage

import (
	"context"
	"errors"
	"time"
)

// KV is the server-side persistent store standing in for browser local storage.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")
