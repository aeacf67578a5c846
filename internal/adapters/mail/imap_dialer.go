package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/mikey/rfp-manager/internal/config"
	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

// imapClient is the subset of the go-imap client used by IMAPMailbox
type imapClient interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	Logout() error
	Terminate() error
}

// IMAPDialer is an implementation of the MailboxDialer interface for IMAP servers
type IMAPDialer struct {
	cfg    config.IMAPConfig
	dial   func(ctx context.Context) (imapClient, error)
	logger *zap.Logger
}

// NewIMAPDialer creates a new IMAP dialer
func NewIMAPDialer(cfg config.IMAPConfig, logger *zap.Logger) *IMAPDialer {
	d := &IMAPDialer{cfg: cfg, logger: logger}
	d.dial = d.dialServer
	return d
}

// CheckCredentials reports missing inbox settings without connecting
func (d *IMAPDialer) CheckCredentials() error {
	if missing := d.cfg.MissingCredentials(); len(missing) > 0 {
		return fmt.Errorf("%w: missing inbox settings: %s", core.ErrConnection, strings.Join(missing, ", "))
	}
	return nil
}

// Open connects, logs in and selects the configured mailbox. The returned
// mailbox must be closed by the caller.
func (d *IMAPDialer) Open(ctx context.Context) (core.Mailbox, error) {
	if err := d.CheckCredentials(); err != nil {
		return nil, err
	}

	c, err := d.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: IMAP connection error: %w", core.ErrConnection, err)
	}

	// go-imap v1 has no context support; dropping the connection unblocks it
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()

	if err := c.Login(d.cfg.User, d.cfg.Password); err != nil {
		_ = c.Terminate()
		return nil, fmt.Errorf("%w: IMAP login failed for %s: %w", core.ErrConnection, d.cfg.User, err)
	}

	status, err := c.Select(d.cfg.Mailbox, false)
	if err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("%w: failed to select mailbox %s: %w", core.ErrConnection, d.cfg.Mailbox, err)
	}

	d.logger.Debug("Opened mailbox",
		zap.String("mailbox", d.cfg.Mailbox),
		zap.Uint32("messages", status.Messages))

	return &IMAPMailbox{client: c, peek: d.cfg.Peek, logger: d.logger}, nil
}

func (d *IMAPDialer) dialServer(ctx context.Context) (imapClient, error) {
	dialer := &net.Dialer{Timeout: d.cfg.Timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	var c *client.Client
	var err error
	if d.cfg.TLS {
		c, err = client.DialWithDialerTLS(dialer, d.cfg.Address(), &tls.Config{ServerName: d.cfg.Host})
	} else {
		c, err = client.DialWithDialer(dialer, d.cfg.Address())
	}
	if err != nil {
		return nil, err
	}
	c.Timeout = d.cfg.Timeout
	return c, nil
}

// IMAPMailbox is an open IMAP session on one mailbox
type IMAPMailbox struct {
	client imapClient
	peek   bool
	logger *zap.Logger
}

// ListUnseen returns the UIDs of messages without the \Seen flag
func (m *IMAPMailbox) ListUnseen(ctx context.Context) ([]uint32, error) {
	stop := context.AfterFunc(ctx, func() { _ = m.client.Terminate() })
	defer stop()

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("error searching for unseen emails: %w", err)
	}
	return uids, nil
}

// Fetch retrieves and parses a message. With peek enabled the server does not
// set \Seen as a side effect.
func (m *IMAPMailbox) Fetch(ctx context.Context, uid uint32) (*core.InboundMessage, error) {
	section := &imap.BodySectionName{Peek: m.peek}
	msg, err := m.fetchOne(ctx, uid, section.FetchItem(), imap.FetchEnvelope, imap.FetchUid)
	if err != nil {
		return nil, err
	}

	inbound := fromEnvelope(uid, msg.Envelope)
	body := msg.GetBody(&imap.BodySectionName{})
	if body == nil {
		return inbound, nil
	}
	parsed, err := ParseMessage(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message UID %d: %w", uid, err)
	}
	inbound.Body = parsed.Body
	if inbound.From == "" {
		inbound.From = parsed.From
	}
	if inbound.Subject == "" {
		inbound.Subject = parsed.Subject
	}
	if inbound.Date.IsZero() {
		inbound.Date = parsed.Date
	}
	return inbound, nil
}

// Envelope retrieves only the envelope of a message. No body section is
// requested, so the server never sets \Seen regardless of imap.peek.
func (m *IMAPMailbox) Envelope(ctx context.Context, uid uint32) (*core.InboundMessage, error) {
	msg, err := m.fetchOne(ctx, uid, imap.FetchEnvelope, imap.FetchUid)
	if err != nil {
		return nil, err
	}
	return fromEnvelope(uid, msg.Envelope), nil
}

func (m *IMAPMailbox) fetchOne(ctx context.Context, uid uint32, items ...imap.FetchItem) (*imap.Message, error) {
	stop := context.AfterFunc(ctx, func() { _ = m.client.Terminate() })
	defer stop()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for mm := range messages {
		msg = mm
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("error fetching message UID %d: %w", uid, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("no message retrieved for UID %d", uid)
	}
	return msg, nil
}

func fromEnvelope(uid uint32, env *imap.Envelope) *core.InboundMessage {
	inbound := &core.InboundMessage{UID: uid}
	if env == nil {
		return inbound
	}
	inbound.Subject = env.Subject
	inbound.Date = env.Date
	if len(env.From) > 0 {
		inbound.From = env.From[0].Address()
	}
	return inbound
}

// MarkSeen sets the \Seen flag on a message
func (m *IMAPMailbox) MarkSeen(ctx context.Context, uid uint32) error {
	stop := context.AfterFunc(ctx, func() { _ = m.client.Terminate() })
	defer stop()

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := m.client.UidStore(seqSet, item, flags, nil); err != nil {
		return fmt.Errorf("error marking message UID %d seen: %w", uid, err)
	}
	return nil
}

// Close logs out from the server
func (m *IMAPMailbox) Close() error {
	if err := m.client.Logout(); err != nil {
		m.logger.Debug("IMAP logout failed", zap.Error(err))
		return m.client.Terminate()
	}
	return nil
}
