package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/rfp-manager/internal/adapters/store"
	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore opens the configured store and creates its schema
func (f *StoreFactory) CreateStore(ctx context.Context) (core.Store, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		if dir := filepath.Dir(storeCfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
		return store.NewSQLiteStore(ctx, storeCfg.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(ctx, storeCfg.MySQLDSN, f.logger)
	case "postgres":
		return store.NewPostgresStore(ctx, storeCfg.PostgresURL, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
