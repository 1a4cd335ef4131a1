// Package storage keeps generated documents and uploaded pass templates in
// an object store: a local directory in development, S3 otherwise.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/park-passes/internal/config"
)

// ErrNotFound is returned by Get for a key that does not exist.
var ErrNotFound = errors.New("object not found")

// Store is a flat key/value object store.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.LocalDir)
	case "s3":
		return NewS3Store(ctx, cfg)
	}
	return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
}
