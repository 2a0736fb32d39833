// Package storage provides the durable key-value records the session store
// is built on.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("storage: key not found")

// Backend is a small durable key-value store. Put must replace the value
// atomically: a reader sees either the old or the new value, never a mix.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open returns the backend of the given kind rooted at dataDir.
func Open(kind, dataDir string) (Backend, error) {
	switch kind {
	case "", KindFile:
		return NewFileBackend(filepath.Join(dataDir, "store")), nil
	case KindSQLite:
		return OpenSQLite(filepath.Join(dataDir, "thinkchat.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
