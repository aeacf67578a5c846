package factory

import (
	"github.com/mikey/rfp-manager/internal/adapters/mail"
	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

// MailFactory creates the outbound sender and the inbox dialer
type MailFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailFactory creates a new mail factory
func NewMailFactory(cfg *config.Config, logger *zap.Logger) *MailFactory {
	return &MailFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSender creates the SMTP sender
func (f *MailFactory) CreateSender() core.MailSender {
	return mail.NewSMTPSender(f.cfg.GetSMTP(), f.logger)
}

// CreateDialer creates the IMAP dialer
func (f *MailFactory) CreateDialer() core.MailboxDialer {
	imapCfg := f.cfg.GetIMAP()
	if missing := imapCfg.MissingCredentials(); len(missing) > 0 {
		f.logger.Warn("Inbox settings incomplete, polling will fail until they are set",
			zap.Strings("missing", missing))
	}
	return mail.NewIMAPDialer(imapCfg, f.logger)
}
