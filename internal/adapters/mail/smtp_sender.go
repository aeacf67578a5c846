package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

// SMTPSender is an implementation of the MailSender interface that delivers
// each email over its own SMTP session
type SMTPSender struct {
	cfg       config.SMTPConfig
	tlsConfig *tls.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(cfg config.SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host},
		logger:    logger,
		now:       time.Now,
	}
}

// Send renders the email and delivers it to its single recipient
func (s *SMTPSender) Send(ctx context.Context, email *core.OutboundEmail) error {
	from := s.cfg.Sender()
	if from == "" {
		return fmt.Errorf("no sender address configured (smtp.from or smtp.user)")
	}

	data, err := BuildMessage(from, email.To, email.Subject, email.HTML, s.now())
	if err != nil {
		return err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	c, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if s.cfg.User != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.User, s.cfg.Password)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(email.To, nil); err != nil {
		return fmt.Errorf("RCPT TO %s failed: %w", email.To, err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	if err := c.Quit(); err != nil {
		s.logger.Debug("QUIT failed", zap.Error(err))
	}

	s.logger.Info("Sent email",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("size", len(data)))
	return nil
}

// connect dials the server, greets it and negotiates TLS according to
// smtp.security. Closing ctx aborts the session.
func (s *SMTPSender) connect(ctx context.Context) (*smtp.Client, error) {
	addr := s.cfg.Address()
	var conn net.Conn
	var err error
	switch s.cfg.Security {
	case "tls":
		d := &tls.Dialer{Config: s.tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	default:
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server %s: %w", addr, err)
	}
	context.AfterFunc(ctx, func() { conn.Close() })

	var c *smtp.Client
	if s.cfg.Security == "starttls" {
		// the EHLO before STARTTLS introduces the client as localhost
		c, err = smtp.NewClientStartTLS(conn, s.tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	} else {
		c = smtp.NewClient(conn)
	}
	if s.cfg.Timeout > 0 {
		c.CommandTimeout = s.cfg.Timeout
		c.SubmissionTimeout = s.cfg.Timeout
	}

	if s.cfg.Security != "starttls" {
		if err := c.Hello(s.cfg.Helo); err != nil {
			c.Close()
			return nil, fmt.Errorf("HELO failed: %w", err)
		}
	}
	return c, nil
}
