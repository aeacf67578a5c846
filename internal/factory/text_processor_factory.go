package factory

import (
	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/senders"
	"github.com/mikey/rfp-manager/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates the text helpers shared by the workflows
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateMatcher creates the sender address matcher
func (f *TextProcessorFactory) CreateMatcher() *senders.Matcher {
	return senders.NewMatcher(f.cfg.GetPoll().NormalizeEmail, f.logger)
}
