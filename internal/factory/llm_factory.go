package factory

import (
	"fmt"

	"github.com/mikey/rfp-manager/internal/adapters/bedrock"
	"github.com/mikey/rfp-manager/internal/adapters/gemini"
	"github.com/mikey/rfp-manager/internal/adapters/openai"
	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates text generators
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateGenerator creates a text generator for the configured provider
func (f *LLMFactory) CreateGenerator() (core.TextGenerator, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateGenerator()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateGenerator()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateGenerator()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
