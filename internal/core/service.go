package core

import (
	"context"
	"time"

	"github.com/mikey/rfp-manager/internal/senders"
	"github.com/mikey/rfp-manager/internal/utils"
	"go.uber.org/zap"
)

// ServiceOptions holds the tunables of the procurement service
type ServiceOptions struct {
	// LLMTimeout bounds each generator call. Zero means no extra deadline.
	LLMTimeout time.Duration
	// SendTimeout bounds each outbound email
	SendTimeout time.Duration
	// MaxBodySize is the number of bytes of an email body sent to the generator
	MaxBodySize int
	// CorrelateSubject attaches replies to the RFP named by their subject tag
	CorrelateSubject bool
	// MarkSeen flags a message as seen after its proposal is written
	MarkSeen bool
}

// Service is the core procurement service
type Service struct {
	store         Store
	generator     TextGenerator
	sender        MailSender
	dialer        MailboxDialer
	pollLock      PollLock
	matcher       *senders.Matcher
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	opts          ServiceOptions
	now           func() time.Time
}

// NewService creates a new procurement service
func NewService(
	store Store,
	generator TextGenerator,
	sender MailSender,
	dialer MailboxDialer,
	pollLock PollLock,
	matcher *senders.Matcher,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	opts ServiceOptions,
) *Service {
	return &Service{
		store:         store,
		generator:     generator,
		sender:        sender,
		dialer:        dialer,
		pollLock:      pollLock,
		matcher:       matcher,
		textProcessor: textProcessor,
		logger:        logger,
		opts:          opts,
		now:           time.Now,
	}
}

// Store returns the underlying store
func (s *Service) Store() Store {
	return s.store
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
