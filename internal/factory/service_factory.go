package factory

import (
	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/core"
	"github.com/mikey/rfp-manager/internal/senders"
	"github.com/mikey/rfp-manager/internal/utils"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// ServiceDeps groups the collaborators of the procurement service
type ServiceDeps struct {
	dig.In

	Store         core.Store
	Generator     core.TextGenerator
	Sender        core.MailSender
	Dialer        core.MailboxDialer
	PollLock      core.PollLock
	Matcher       *senders.Matcher
	TextProcessor *utils.TextProcessor
}

// ServiceOptions reads the workflow tunables from configuration
func ServiceOptions(cfg *config.Config) core.ServiceOptions {
	llm := cfg.GetLLM()
	poll := cfg.GetPoll()
	return core.ServiceOptions{
		LLMTimeout:       llm.Timeout,
		SendTimeout:      cfg.GetSMTP().Timeout,
		MaxBodySize:      llm.MaxBodySize,
		CorrelateSubject: poll.CorrelateSubject,
		MarkSeen:         poll.MarkSeen,
	}
}

// NewService builds the procurement service
func NewService(cfg *config.Config, logger *zap.Logger, deps ServiceDeps) *core.Service {
	opts := ServiceOptions(cfg)
	logger.Info("Procurement service configured",
		zap.String("llm_provider", cfg.GetLLM().Provider),
		zap.String("store", cfg.GetStore().Type),
		zap.String("lock", cfg.GetLock().Type),
		zap.Bool("correlate_subject", opts.CorrelateSubject),
		zap.Bool("mark_seen", opts.MarkSeen))

	return core.NewService(
		deps.Store,
		deps.Generator,
		deps.Sender,
		deps.Dialer,
		deps.PollLock,
		deps.Matcher,
		deps.TextProcessor,
		logger,
		opts,
	)
}
