package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type proposalForComparison struct {
	ProposalID int64         `json:"proposal_id"`
	VendorID   int64         `json:"vendor_id"`
	VendorName string        `json:"vendor_name,omitempty"`
	Terms      ProposalTerms `json:"terms"`
	Summary    string        `json:"summary,omitempty"`
}

// Recommend asks the generator to pick the best proposal of an RFP.
// The result is computed on every call and never stored.
func (s *Service) Recommend(ctx context.Context, rfpID int64) (*Recommendation, error) {
	rfp, err := s.store.GetRFP(ctx, rfpID)
	if err != nil {
		return nil, err
	}

	proposals, err := s.store.ListProposalsByRFP(ctx, rfpID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	if len(proposals) == 0 {
		return nil, fmt.Errorf("%w: no proposals received for rfp %d", ErrNotFound, rfpID)
	}

	candidates := make([]proposalForComparison, 0, len(proposals))
	vendorIDs := make(map[int64]bool, len(proposals))
	for _, p := range proposals {
		c := proposalForComparison{
			ProposalID: p.ID,
			VendorID:   p.VendorID,
			Terms:      p.Parsed,
			Summary:    p.AISummary,
		}
		vendor, err := s.store.GetVendor(ctx, p.VendorID)
		switch {
		case err == nil:
			c.VendorName = vendor.DisplayName()
		case !errors.Is(err, ErrNotFound):
			s.logger.Warn("Failed to load vendor for comparison",
				zap.Int64("vendor_id", p.VendorID),
				zap.Int64("proposal_id", p.ID),
				zap.Error(err))
		}
		candidates = append(candidates, c)
		vendorIDs[p.VendorID] = true
	}

	data, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: compare_proposals: %w", ErrExtraction, err)
	}

	raw, err := s.generate(ctx, "compare_proposals", fmt.Sprintf(compareProposalsPrompt, rfp.Title, data))
	if err != nil {
		return nil, err
	}

	var payload recommendationPayload
	if err := decodeJSON(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: compare_proposals: %w", ErrExtraction, err)
	}
	if payload.Winner == nil {
		return nil, fmt.Errorf("%w: compare_proposals: response has no winner", ErrExtraction)
	}
	winner := int64(*payload.Winner)
	if float64(winner) != *payload.Winner || !vendorIDs[winner] {
		return nil, fmt.Errorf("%w: compare_proposals: winner %v is not a vendor of this rfp", ErrExtraction, *payload.Winner)
	}
	explanation := strings.TrimSpace(payload.Explanation)
	if explanation == "" {
		return nil, fmt.Errorf("%w: compare_proposals: response has no explanation", ErrExtraction)
	}

	s.logger.Info("Recommended vendor",
		zap.Int64("rfp_id", rfpID),
		zap.Int64("winner", winner),
		zap.Int("proposals", len(proposals)))

	return &Recommendation{Winner: winner, Explanation: explanation}, nil
}
