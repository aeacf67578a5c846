package factory

import (
	"github.com/mikey/rfp-manager/internal/adapters/httpapi"
	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/core"
	"github.com/mikey/rfp-manager/internal/ports"
	"go.uber.org/zap"
)

// ServerFactory creates the network front end
type ServerFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.Service
}

// NewServerFactory creates a new server factory
func NewServerFactory(cfg *config.Config, logger *zap.Logger, service *core.Service) *ServerFactory {
	return &ServerFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateServer creates the HTTP API server
func (f *ServerFactory) CreateServer() ports.Server {
	return httpapi.NewServer(f.cfg.GetServer(), f.service, f.logger)
}
