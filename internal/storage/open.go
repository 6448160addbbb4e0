package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nithinv16/hearmem/internal/config"
)

// Open builds a KV store from configuration, wrapping it with the read
// cache when enabled.
func Open(cfg config.StorageConfig) (KV, error) {
	var (
		backend KV
		err     error
	)

	switch cfg.Backend {
	case "memory":
		backend = NewMemKV()
	case "badger":
		if mkErr := os.MkdirAll(cfg.Dir, 0700); mkErr != nil {
			return nil, fmt.Errorf("creating data directory: %w", mkErr)
		}
		backend, err = NewBadgerKV(BadgerOptions{
			Dir:        filepath.Join(cfg.Dir, "badger"),
			GCInterval: 5 * time.Minute,
		})
	case "sqlite":
		if mkErr := os.MkdirAll(cfg.Dir, 0700); mkErr != nil {
			return nil, fmt.Errorf("creating data directory: %w", mkErr)
		}
		backend, err = NewSQLiteKV(filepath.Join(cfg.Dir, "hearmem.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled {
		return NewCachedKV(backend, cfg.Cache.MaxSizeMB)
	}
	return backend, nil
}
