package storage

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/snapbridge/internal/config"
)

// Open builds the store selected by the host storage configuration.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.StorageMemory, "":
		return NewMemoryStore(), nil
	case config.StorageSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.StorageNATS:
		return NewNATSStore(ctx, cfg.NATSURL, cfg.NATSBucket)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
