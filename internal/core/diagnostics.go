package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const diagnosticsSampleSize = 5

// DiagnosticMessage describes one unread message seen during diagnostics
type DiagnosticMessage struct {
	UID     uint32    `json:"uid"`
	From    string    `json:"from"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
}

// DiagnosticMatch reports whether an unread sender is a known vendor
type DiagnosticMatch struct {
	Email      string `json:"email"`
	Matched    bool   `json:"matched"`
	VendorID   int64  `json:"vendorId,omitempty"`
	VendorName string `json:"vendorName,omitempty"`
}

// DiagnosticsReport is the step by step outcome of DiagnoseInbox.
// Step names the last step attempted; Error is set when that step failed.
type DiagnosticsReport struct {
	Status        string              `json:"status"`
	Step          string              `json:"step"`
	Error         string              `json:"error,omitempty"`
	Connected     bool                `json:"connected"`
	UnseenCount   int                 `json:"unseenCount"`
	UnseenEmails  []DiagnosticMessage `json:"unseenEmails"`
	Vendors       []*Vendor           `json:"vendors"`
	VendorMatches []DiagnosticMatch   `json:"emailVendorMatches"`
	FetchErrors   []string            `json:"fetchErrors,omitempty"`
}

// OK reports whether every diagnostics step completed
func (r *DiagnosticsReport) OK() bool {
	return r.Status == "success"
}

// DiagnoseInbox walks through the inbox setup and reports where it fails.
// It never flags messages as seen and never writes to the store.
func (s *Service) DiagnoseInbox(ctx context.Context) *DiagnosticsReport {
	report := &DiagnosticsReport{
		Status:        "error",
		UnseenEmails:  make([]DiagnosticMessage, 0),
		Vendors:       make([]*Vendor, 0),
		VendorMatches: make([]DiagnosticMatch, 0),
	}
	fail := func(err error) *DiagnosticsReport {
		report.Error = err.Error()
		s.logger.Warn("Inbox diagnostics failed", zap.String("step", report.Step), zap.Error(err))
		return report
	}

	report.Step = "Checking inbox settings"
	if err := s.dialer.CheckCredentials(); err != nil {
		return fail(err)
	}

	report.Step = "Connecting to inbox"
	mailbox, err := s.dialer.Open(ctx)
	if err != nil {
		return fail(err)
	}
	defer mailbox.Close()
	report.Connected = true

	report.Step = "Checking for unread emails"
	uids, err := mailbox.ListUnseen(ctx)
	if err != nil {
		return fail(err)
	}
	report.UnseenCount = len(uids)
	for i, uid := range uids {
		if i == diagnosticsSampleSize {
			break
		}
		msg, err := mailbox.Envelope(ctx, uid)
		if err != nil {
			report.FetchErrors = append(report.FetchErrors, err.Error())
			continue
		}
		report.UnseenEmails = append(report.UnseenEmails, DiagnosticMessage{
			UID:     msg.UID,
			From:    msg.From,
			Subject: msg.Subject,
			Date:    msg.Date,
		})
	}

	report.Step = "Checking vendors in database"
	vendors, err := s.store.ListVendors(ctx)
	if err != nil {
		return fail(err)
	}
	report.Vendors = vendors

	report.Step = "Matching emails to vendors"
	byEmail := make(map[string]*Vendor, len(vendors))
	for _, v := range vendors {
		byEmail[v.Email] = v
	}
	for _, m := range report.UnseenEmails {
		match := DiagnosticMatch{Email: m.From}
		if from, ok := s.matcher.Normalize(m.From); ok {
			if v, found := byEmail[from]; found {
				match.Matched = true
				match.VendorID = v.ID
				match.VendorName = v.Name
			}
		}
		report.VendorMatches = append(report.VendorMatches, match)
	}

	report.Step = "Complete"
	report.Status = "success"
	return report
}
