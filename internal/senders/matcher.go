package senders

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// Matcher normalizes email addresses so inbound senders can be compared with
// stored vendor addresses
type Matcher struct {
	fold   bool
	logger *zap.Logger
}

// NewMatcher creates a new sender matcher. With fold set, addresses are
// Unicode case folded; otherwise only surrounding space and display names are
// removed and comparison stays case sensitive.
func NewMatcher(fold bool, logger *zap.Logger) *Matcher {
	if logger != nil {
		logger.Info("Initialized sender matcher", zap.Bool("case_fold", fold))
	}
	return &Matcher{
		fold:   fold,
		logger: logger,
	}
}

// Normalize returns the bare address of raw, e.g. "Acme <Sales@Acme.com>"
// becomes "sales@acme.com" when folding. ok is false when raw is not an address.
func (m *Matcher) Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	addr, err := mail.ParseAddress(raw)
	if err != nil {
		if m.logger != nil {
			m.logger.Debug("Unparseable email address",
				zap.String("address", raw),
				zap.Error(err))
		}
		return "", false
	}

	email := addr.Address
	if m.fold {
		// cases.Caser keeps state between calls
		email = cases.Fold().String(email)
	}
	return email, true
}
