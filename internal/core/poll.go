package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mikey/rfp-manager/internal/metrics"
	"go.uber.org/zap"
)

// PollInbox converts unread vendor replies into stored proposals.
//
// A connection failure aborts the run. Every other failure is scoped to one
// message: its reason is appended to the result and the next message is tried.
// Messages are only flagged seen when MarkSeen is enabled, so without it the
// next run sees the same messages again and writes them again.
func (s *Service) PollInbox(ctx context.Context) (*PollResult, error) {
	release, ok, err := s.pollLock.TryAcquire(ctx)
	if err != nil {
		metrics.PollRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("acquire poll lock: %w", err)
	}
	if !ok {
		metrics.PollRuns.WithLabelValues("busy").Inc()
		return nil, ErrPollInProgress
	}
	defer release()

	mailbox, err := s.dialer.Open(ctx)
	if err != nil {
		metrics.PollRuns.WithLabelValues("error").Inc()
		s.logger.Error("Failed to open mailbox", zap.Error(err))
		if errors.Is(err, ErrConnection) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer func() {
		if err := mailbox.Close(); err != nil {
			s.logger.Warn("Failed to close mailbox", zap.Error(err))
		}
	}()

	uids, err := mailbox.ListUnseen(ctx)
	if err != nil {
		metrics.PollRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: list unseen messages: %w", ErrConnection, err)
	}
	if len(uids) == 0 {
		metrics.PollRuns.WithLabelValues("empty").Inc()
		s.logger.Info("No unread messages")
		return &PollResult{Status: "ok", Processed: 0, Message: "no unread messages"}, nil
	}

	s.logger.Info("Polling inbox", zap.Int("unread", len(uids)))

	result := &PollResult{Status: "ok"}
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("poll interrupted: %v", err))
			break
		}

		logger := s.logger.With(
			zap.String("trace_id", uuid.NewString()),
			zap.Uint32("uid", uid))

		if err := s.processMessage(ctx, mailbox, uid, logger); err != nil {
			metrics.PollMessages.WithLabelValues(messageOutcome(err)).Inc()
			logger.Warn("Skipped message", zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("message %d: %v", uid, err))
			continue
		}

		metrics.PollMessages.WithLabelValues("processed").Inc()
		result.Processed++
	}

	metrics.PollRuns.WithLabelValues("ok").Inc()
	s.logger.Info("Inbox poll finished",
		zap.Int("processed", result.Processed),
		zap.Int("failed", len(result.Errors)))

	return result, nil
}

// errSkipped marks messages that are ignored rather than failed
var errSkipped = errors.New("skipped")

func messageOutcome(err error) string {
	switch {
	case errors.Is(err, errSkipped):
		return "skipped"
	case errors.Is(err, ErrExtraction):
		return "extraction_error"
	case errors.Is(err, ErrPersistence):
		return "persistence_error"
	default:
		return "error"
	}
}

func (s *Service) processMessage(ctx context.Context, mailbox Mailbox, uid uint32, logger *zap.Logger) error {
	msg, err := mailbox.Fetch(ctx, uid)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if strings.TrimSpace(msg.From) == "" {
		return fmt.Errorf("%w: no sender address", errSkipped)
	}
	if strings.TrimSpace(msg.Body) == "" {
		return fmt.Errorf("%w: empty body from %s", errSkipped, msg.From)
	}

	from, ok := s.matcher.Normalize(msg.From)
	if !ok {
		return fmt.Errorf("%w: unparseable sender %q", errSkipped, msg.From)
	}

	vendor, err := s.store.FindVendorByEmail(ctx, from)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: sender %s is not a known vendor", errSkipped, from)
		}
		return fmt.Errorf("vendor lookup for %s: %w", from, err)
	}
	logger = logger.With(zap.Int64("vendor_id", vendor.ID))

	rfp, err := s.activeRFP(ctx, msg.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: no RFP exists for reply from %s", errSkipped, from)
		}
		return fmt.Errorf("rfp lookup: %w", err)
	}
	logger = logger.With(zap.Int64("rfp_id", rfp.ID))

	terms, err := s.extractProposal(ctx, msg.Body)
	if err != nil {
		return err
	}
	summary, err := s.summarizeProposal(ctx, terms)
	if err != nil {
		return err
	}

	proposal := &Proposal{
		RFPID:     rfp.ID,
		VendorID:  vendor.ID,
		Parsed:    *terms,
		AISummary: summary,
		RawEmail:  msg.Body,
	}
	if err := s.store.CreateProposal(ctx, proposal); err != nil {
		return fmt.Errorf("%w: save proposal: %w", ErrPersistence, err)
	}

	logger.Info("Stored proposal",
		zap.Int64("proposal_id", proposal.ID),
		zap.Float64("price", terms.Price),
		zap.Float64("delivery_days", terms.DeliveryDays))

	if s.opts.MarkSeen {
		if err := mailbox.MarkSeen(ctx, uid); err != nil {
			logger.Warn("Failed to mark message seen", zap.Error(err))
		}
	}
	return nil
}

// activeRFP picks the RFP a reply belongs to. With subject correlation enabled
// a reply tagged with an existing RFP id goes to that RFP; otherwise the most
// recently created RFP is used.
func (s *Service) activeRFP(ctx context.Context, subject string) (*RFP, error) {
	if s.opts.CorrelateSubject {
		if id, ok := RFPIDFromSubject(subject); ok {
			rfp, err := s.store.GetRFP(ctx, id)
			if err == nil {
				return rfp, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
	}
	return s.store.LatestRFP(ctx)
}
