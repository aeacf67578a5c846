package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"regexp"
	"strconv"

	"github.com/mikey/rfp-manager/internal/metrics"
	"go.uber.org/zap"
)

var rfpEmailTemplate = template.Must(template.New("rfp").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">New Request for Proposal: {{.Title}}</h2>
  <p>Dear {{.VendorName}},</p>
  <p>We are requesting proposals for the following procurement:</p>
  <div style="background: #f5f5f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <pre style="white-space: pre-wrap; font-size: 13px;">{{.Structured}}</pre>
  </div>
  <p>Please reply to this email with your proposal including pricing, delivery timeline, and terms.</p>
  <p><strong>RFP ID:</strong> {{.ID}}</p>
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #ddd;">
  <p style="color: #666; font-size: 12px;">This is an automated email from the RFP Management System.</p>
</div>
`))

// subjectTagPattern matches the tag written by RFPSubject, e.g. "[RFP-12]"
var subjectTagPattern = regexp.MustCompile(`\[RFP-(\d+)\]`)

// RFPSubject returns the subject line of the email sent for rfp
func RFPSubject(rfp *RFP) string {
	return fmt.Sprintf("RFP: %s [RFP-%d]", rfp.Title, rfp.ID)
}

// RFPIDFromSubject returns the RFP id tagged in a subject line, if any
func RFPIDFromSubject(subject string) (int64, bool) {
	m := subjectTagPattern.FindStringSubmatch(subject)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// RenderRFPEmail renders the HTML body of the RFP email for one vendor
func RenderRFPEmail(rfp *RFP, vendor *Vendor) (string, error) {
	structured, err := json.MarshalIndent(rfp.Structured, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode structured payload: %w", err)
	}

	name := vendor.Name
	if name == "" {
		name = "Vendor"
	}

	var buf bytes.Buffer
	err = rfpEmailTemplate.Execute(&buf, struct {
		ID         int64
		Title      string
		VendorName string
		Structured string
	}{
		ID:         rfp.ID,
		Title:      rfp.Title,
		VendorName: name,
		Structured: string(structured),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render RFP email: %w", err)
	}
	return buf.String(), nil
}

// SendRFP emails an RFP to each requested vendor. Once the RFP and vendors are
// loaded, per-vendor send failures are collected instead of returned.
func (s *Service) SendRFP(ctx context.Context, rfpID int64, vendorIDs []int64) (*DispatchResult, error) {
	if rfpID <= 0 || len(vendorIDs) == 0 {
		return nil, fmt.Errorf("%w: rfpId and vendorIds are required", ErrValidation)
	}

	rfp, err := s.store.GetRFP(ctx, rfpID)
	if err != nil {
		return nil, err
	}

	vendors, err := s.store.GetVendorsByIDs(ctx, vendorIDs)
	if err != nil {
		return nil, fmt.Errorf("load vendors: %w", err)
	}
	if len(vendors) == 0 {
		return nil, fmt.Errorf("%w: no vendors found", ErrNotFound)
	}

	result := &DispatchResult{
		Success: true,
		SentTo:  make([]string, 0, len(vendors)),
		Errors:  make([]string, 0),
		Total:   len(vendors),
	}
	subject := RFPSubject(rfp)

	for _, vendor := range vendors {
		if err := s.sendOne(ctx, rfp, vendor, subject); err != nil {
			metrics.EmailsSent.WithLabelValues("error").Inc()
			s.logger.Error("Failed to send RFP",
				zap.Int64("rfp_id", rfp.ID),
				zap.String("vendor_email", vendor.Email),
				zap.Error(err))
			result.Errors = append(result.Errors, vendor.Email)
			continue
		}
		metrics.EmailsSent.WithLabelValues("ok").Inc()
		result.SentTo = append(result.SentTo, vendor.DisplayName())
	}

	s.logger.Info("Dispatched RFP",
		zap.Int64("rfp_id", rfp.ID),
		zap.Int("sent", len(result.SentTo)),
		zap.Int("failed", len(result.Errors)))

	return result, nil
}

func (s *Service) sendOne(ctx context.Context, rfp *RFP, vendor *Vendor, subject string) error {
	html, err := RenderRFPEmail(rfp, vendor)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.opts.SendTimeout)
	defer cancel()

	return s.sender.Send(ctx, &OutboundEmail{
		To:      vendor.Email,
		Subject: subject,
		HTML:    html,
	})
}
