package factory

import (
	"context"
	"fmt"

	"github.com/mikey/rfp-manager/internal/adapters/lock"
	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

// LockFactory creates poll locks based on configuration
type LockFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLockFactory creates a new lock factory
func NewLockFactory(cfg *config.Config, logger *zap.Logger) *LockFactory {
	return &LockFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreatePollLock creates the configured poll lock
func (f *LockFactory) CreatePollLock(ctx context.Context) (core.PollLock, error) {
	lockCfg := f.cfg.GetLock()

	switch lockCfg.Type {
	case "memory":
		return lock.NewMemoryLock(), nil
	case "redis":
		return lock.NewRedisLock(ctx, lockCfg.RedisURL, lockCfg.Key, lockCfg.TTL, f.logger)
	default:
		return nil, fmt.Errorf("unsupported lock type: %s", lockCfg.Type)
	}
}
