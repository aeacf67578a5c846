package di

import (
	"context"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/core"
	"github.com/mikey/rfp-manager/internal/factory"
	"github.com/mikey/rfp-manager/internal/logging"
	"github.com/mikey/rfp-manager/internal/ports"
	"github.com/mikey/rfp-manager/internal/senders"
	"github.com/mikey/rfp-manager/internal/utils"
)

// startupTimeout bounds opening the store and the poll lock
const startupTimeout = 30 * time.Second

// BuildContainer creates and configures the dependency injection container of rfp-server
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCollaborators(container); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(factory.NewServerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.ServerFactory) ports.Server {
		return f.CreateServer()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCollaborators registers the factories, the adapters they create and
// the procurement service. Config and logger must already be provided.
func provideCollaborators(container *dig.Container) error {
	// Register factories
	for _, ctor := range []any{
		factory.NewLLMFactory,
		factory.NewStoreFactory,
		factory.NewLockFactory,
		factory.NewMailFactory,
		factory.NewTextProcessorFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	// Register generator
	if err := container.Provide(func(f *factory.LLMFactory) (core.TextGenerator, error) {
		return f.CreateGenerator()
	}); err != nil {
		return err
	}

	// Register store
	if err := container.Provide(func(f *factory.StoreFactory) (core.Store, error) {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		return f.CreateStore(ctx)
	}); err != nil {
		return err
	}

	// Register poll lock
	if err := container.Provide(func(f *factory.LockFactory) (core.PollLock, error) {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		return f.CreatePollLock(ctx)
	}); err != nil {
		return err
	}

	// Register mail transport and inbox
	if err := container.Provide(func(f *factory.MailFactory) core.MailSender {
		return f.CreateSender()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.MailFactory) core.MailboxDialer {
		return f.CreateDialer()
	}); err != nil {
		return err
	}

	// Register text helpers
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory) *senders.Matcher {
		return f.CreateMatcher()
	}); err != nil {
		return err
	}

	// Register procurement service
	return container.Provide(factory.NewService)
}

// Closers collects the resources that must be released on shutdown
type Closers struct {
	dig.In

	Logger    *zap.Logger
	Store     core.Store
	Generator core.TextGenerator
	PollLock  core.PollLock
}

// Close releases the store, the generator client and the lock connection
func (c Closers) Close() {
	if err := c.Store.Close(); err != nil {
		c.Logger.Error("Failed to close store", zap.Error(err))
	}
	if closer, ok := c.Generator.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			c.Logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
	if closer, ok := c.PollLock.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			c.Logger.Error("Failed to close poll lock", zap.Error(err))
		}
	}
}
