package storage

import (
	"context"
	"fmt"

	"github.com/agriland/marketplace/config"
)

// Open builds the configured backend and makes sure its bucket exists.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case config.StorageBackendLocal, "":
		backend, err = NewLocalBackend(cfg.LocalDir)
	case config.StorageBackendMinio:
		backend, err = NewMinioBackend(cfg.Minio)
	case config.StorageBackendGCS:
		backend, err = NewGCSBackend(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	s := NewStorage(backend)
	if err := s.EnsureBucket(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return s, nil
}
