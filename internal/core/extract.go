package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/rfp-manager/internal/metrics"
	"go.uber.org/zap"
)

// proposalPayload mirrors ProposalTerms with pointers so absent numbers can be detected
type proposalPayload struct {
	Price        *float64 `json:"price"`
	DeliveryDays *float64 `json:"delivery_days"`
	Warranty     string   `json:"warranty"`
	Terms        string   `json:"terms"`
	Notes        string   `json:"notes"`
}

type summaryPayload struct {
	Summary string `json:"summary"`
}

type recommendationPayload struct {
	Winner      *float64 `json:"winner"`
	Explanation string   `json:"explanation"`
}

// decodeJSON parses the generator output into v. Completions that wrap the
// object in prose or code fences are cut down to the outermost braces.
func decodeJSON(text string, v any) error {
	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("failed to extract JSON from response: %w", err)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	return nil
}

// generate calls the generator under the configured timeout and records the outcome
func (s *Service) generate(ctx context.Context, kind, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, s.opts.LLMTimeout)
	defer cancel()

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		metrics.GeneratorCalls.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("%w: %s: %w", ErrExtraction, kind, err)
	}
	if strings.TrimSpace(text) == "" {
		metrics.GeneratorCalls.WithLabelValues(kind, "empty").Inc()
		return "", fmt.Errorf("%w: %s: empty response", ErrExtraction, kind)
	}
	metrics.GeneratorCalls.WithLabelValues(kind, "ok").Inc()
	return text, nil
}

// structureRFP turns free text into a validated RFP payload
func (s *Service) structureRFP(ctx context.Context, text string) (*RFPStructured, error) {
	raw, err := s.generate(ctx, "structure_rfp", fmt.Sprintf(structureRFPPrompt, text))
	if err != nil {
		return nil, err
	}

	var structured RFPStructured
	if err := decodeJSON(raw, &structured); err != nil {
		s.logger.Debug("Unparseable RFP response", zap.String("response", raw))
		return nil, fmt.Errorf("%w: structure_rfp: %w", ErrExtraction, err)
	}
	if err := validateRFP(&structured); err != nil {
		return nil, fmt.Errorf("%w: structure_rfp: %w", ErrExtraction, err)
	}
	return &structured, nil
}

func validateRFP(rfp *RFPStructured) error {
	if len(rfp.Items) == 0 {
		return fmt.Errorf("response has no items")
	}
	for i, item := range rfp.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("item %d has no name", i)
		}
		if item.Qty < 0 {
			return fmt.Errorf("item %d has negative qty", i)
		}
	}
	if rfp.Budget != nil && *rfp.Budget < 0 {
		return fmt.Errorf("budget is negative")
	}
	return nil
}

// extractProposal pulls proposal terms out of an email body
func (s *Service) extractProposal(ctx context.Context, body string) (*ProposalTerms, error) {
	body = s.textProcessor.ProcessText(body, s.opts.MaxBodySize)

	raw, err := s.generate(ctx, "extract_proposal", fmt.Sprintf(extractProposalPrompt, body))
	if err != nil {
		return nil, err
	}

	var payload proposalPayload
	if err := decodeJSON(raw, &payload); err != nil {
		s.logger.Debug("Unparseable proposal response", zap.String("response", raw))
		return nil, fmt.Errorf("%w: extract_proposal: %w", ErrExtraction, err)
	}
	switch {
	case payload.Price == nil:
		return nil, fmt.Errorf("%w: extract_proposal: response has no price", ErrExtraction)
	case payload.DeliveryDays == nil:
		return nil, fmt.Errorf("%w: extract_proposal: response has no delivery_days", ErrExtraction)
	case *payload.Price < 0 || *payload.DeliveryDays < 0:
		return nil, fmt.Errorf("%w: extract_proposal: negative price or delivery_days", ErrExtraction)
	}

	return &ProposalTerms{
		Price:        *payload.Price,
		DeliveryDays: *payload.DeliveryDays,
		Warranty:     payload.Warranty,
		Terms:        payload.Terms,
		Notes:        payload.Notes,
	}, nil
}

// summarizeProposal produces a short summary of extracted terms
func (s *Service) summarizeProposal(ctx context.Context, terms *ProposalTerms) (string, error) {
	data, err := json.MarshalIndent(terms, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: summarize_proposal: %w", ErrExtraction, err)
	}

	raw, err := s.generate(ctx, "summarize_proposal", fmt.Sprintf(summarizeProposalPrompt, data))
	if err != nil {
		return "", err
	}

	var payload summaryPayload
	if err := decodeJSON(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: summarize_proposal: %w", ErrExtraction, err)
	}
	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		return "", fmt.Errorf("%w: summarize_proposal: response has no summary", ErrExtraction)
	}
	return summary, nil
}
