// Package storage persists JSON arrays under string keys.
//
// A Backend only moves raw bytes. Load and Save add the JSON array framing
// on top, so every backend stores exactly the same payload.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrCorrupt marks a stored value that is not a JSON array of the
	// expected shape.
	ErrCorrupt = errors.New("stored value is not valid JSON")
	// ErrQuota marks a write the backend refused for lack of space.
	ErrQuota = errors.New("storage quota exceeded")

	errUnknownBackend = errors.New("unknown storage backend")
)

type Backend interface {
	// Get returns the value stored under key. ok is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Load returns the items saved under key. A missing key yields an empty
// slice. A corrupt value also yields an empty slice, together with an error
// wrapping ErrCorrupt, so callers can start from scratch.
func Load[T any](ctx context.Context, b Backend, key string) ([]T, error) {
	raw, ok, err := b.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return []T{}, fmt.Errorf("load %q: %w: %w", key, ErrCorrupt, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save replaces the value under key with items encoded as a JSON array.
func Save[T any](ctx context.Context, b Backend, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := b.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

type Kind string

const (
	KindMemory   Kind = "memory"
	KindFile     Kind = "file"
	KindPostgres Kind = "postgres"
	KindRedis    Kind = "redis"
)

type Options struct {
	Kind          Kind
	DataDir       string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open connects the backend selected by opts.Kind.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case KindMemory, "":
		return NewMemory(), nil
	case KindFile:
		return NewFile(opts.DataDir)
	case KindPostgres:
		return OpenPostgres(ctx, opts.DatabaseURL)
	case KindRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownBackend, opts.Kind)
	}
}
