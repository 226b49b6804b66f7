// Package blob stores attachment payloads. File metadata stays in the
// relational store; the bytes go to one of the backends below, selected by
// BLOB_BACKEND.
package blob

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"investtrack/internal/config"
)

// ErrNotFound is returned by Get when no payload exists under the key.
var ErrNotFound = errors.New("blob: not found")

// Store is a flat key/value store for attachment payloads.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// New builds the backend named by cfg.BlobBackend.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB) (Store, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendDatabase, "":
		return NewDatabaseStore(db), nil
	case config.BlobBackendBadger:
		return NewBadgerStore(WithDataDir(cfg.BlobDir))
	case config.BlobBackendS3:
		s, err := NewS3Store(
			WithBucket(cfg.S3Bucket),
			WithPrefix(cfg.S3Prefix),
			WithRegion(cfg.S3Region),
		)
		if err != nil {
			return nil, err
		}
		if err := s.Start(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("blob: unknown backend %q", cfg.BlobBackend)
	}
}
