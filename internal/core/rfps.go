package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/rfp-manager/internal/metrics"
	"go.uber.org/zap"
)

// CreateRFPFromText structures free text with the generator and stores the result
func (s *Service) CreateRFPFromText(ctx context.Context, text string) (*RFP, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}

	structured, err := s.structureRFP(ctx, text)
	if err != nil {
		s.logger.Warn("Failed to structure RFP", zap.Error(err))
		return nil, err
	}

	title := strings.TrimSpace(structured.Title)
	if title == "" {
		title = DefaultRFPTitle
	}

	rfp := &RFP{
		Title:       title,
		Description: text,
		Structured:  *structured,
	}
	if err := s.store.CreateRFP(ctx, rfp); err != nil {
		return nil, fmt.Errorf("%w: create rfp: %w", ErrPersistence, err)
	}

	metrics.RFPsCreated.Inc()
	s.logger.Info("Created RFP",
		zap.Int64("rfp_id", rfp.ID),
		zap.String("title", rfp.Title),
		zap.Int("items", len(rfp.Structured.Items)))

	return rfp, nil
}

// ListRFPs returns all RFPs, newest first
func (s *Service) ListRFPs(ctx context.Context) ([]*RFP, error) {
	rfps, err := s.store.ListRFPs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rfps: %w", err)
	}
	return rfps, nil
}

// GetRFPDetail returns an RFP with its proposals joined to their vendors
func (s *Service) GetRFPDetail(ctx context.Context, id int64) (*RFPDetail, error) {
	rfp, err := s.store.GetRFP(ctx, id)
	if err != nil {
		return nil, err
	}

	proposals, err := s.store.ListProposalsByRFP(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	detail := &RFPDetail{RFP: rfp, Proposals: make([]*ProposalWithVendor, 0, len(proposals))}
	vendors := make(map[int64]*Vendor)
	for _, p := range proposals {
		vendor, ok := vendors[p.VendorID]
		if !ok {
			vendor, err = s.store.GetVendor(ctx, p.VendorID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("get vendor %d: %w", p.VendorID, err)
			}
			vendors[p.VendorID] = vendor
		}
		detail.Proposals = append(detail.Proposals, &ProposalWithVendor{Proposal: p, Vendor: vendor})
	}

	return detail, nil
}

// DeleteRFP removes an RFP and its proposals
func (s *Service) DeleteRFP(ctx context.Context, id int64) error {
	if err := s.store.DeleteRFP(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: delete rfp %d: %w", ErrPersistence, id, err)
	}
	s.logger.Info("Deleted RFP", zap.Int64("rfp_id", id))
	return nil
}

// ParseProposal extracts proposal terms from a single email body without storing anything
func (s *Service) ParseProposal(ctx context.Context, email string) (*ProposalTerms, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	return s.extractProposal(ctx, email)
}
