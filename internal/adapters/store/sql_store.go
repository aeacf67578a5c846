package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

// SQLStore implements the Store interface on database/sql for drivers that
// use ? placeholders and LastInsertId, i.e. SQLite and MySQL
type SQLStore struct {
	db          *sql.DB
	driver      string
	isDuplicate func(error) bool
	logger      *zap.Logger
}

func newSQLStore(db *sql.DB, driver string, schema []string, isDuplicate func(error) bool, logger *zap.Logger) (*SQLStore, error) {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &SQLStore{db: db, driver: driver, isDuplicate: isDuplicate, logger: logger}, nil
}

func duplicateEmail(email string) error {
	return fmt.Errorf("%w: a vendor with email %s already exists", core.ErrConflict, email)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	rfpColumns      = "id, title, description, structured, created_at"
	vendorColumns   = "id, name, email, contact, created_at"
	proposalColumns = "id, rfp_id, vendor_id, parsed, ai_summary, raw_email, created_at"
)

func scanRFP(row rowScanner) (*core.RFP, error) {
	var rfp core.RFP
	var structured []byte
	if err := row.Scan(&rfp.ID, &rfp.Title, &rfp.Description, &structured, &rfp.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(structured, &rfp.Structured); err != nil {
		return nil, fmt.Errorf("failed to decode structured payload of rfp %d: %w", rfp.ID, err)
	}
	return &rfp, nil
}

func scanVendor(row rowScanner) (*core.Vendor, error) {
	var v core.Vendor
	if err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Contact, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func scanProposal(row rowScanner) (*core.Proposal, error) {
	var p core.Proposal
	var parsed []byte
	if err := row.Scan(&p.ID, &p.RFPID, &p.VendorID, &parsed, &p.AISummary, &p.RawEmail, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(parsed, &p.Parsed); err != nil {
		return nil, fmt.Errorf("failed to decode parsed terms of proposal %d: %w", p.ID, err)
	}
	return &p, nil
}

// CreateRFP stores a new RFP and sets its ID and CreatedAt
func (s *SQLStore) CreateRFP(ctx context.Context, rfp *core.RFP) error {
	structured, err := json.Marshal(rfp.Structured)
	if err != nil {
		return fmt.Errorf("failed to encode structured payload: %w", err)
	}

	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rfps (title, description, structured, created_at)
		VALUES (?, ?, ?, ?)
	`, rfp.Title, rfp.Description, string(structured), createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert rfp: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read rfp id: %w", err)
	}
	rfp.ID = id
	rfp.CreatedAt = createdAt
	return nil
}

// GetRFP returns an RFP by ID
func (s *SQLStore) GetRFP(ctx context.Context, id int64) (*core.RFP, error) {
	rfp, err := scanRFP(s.db.QueryRowContext(ctx, `
		SELECT `+rfpColumns+` FROM rfps WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: rfp %d", core.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to query rfp %d: %w", id, err)
	}
	return rfp, nil
}

// ListRFPs returns all RFPs, newest first
func (s *SQLStore) ListRFPs(ctx context.Context) ([]*core.RFP, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+rfpColumns+` FROM rfps ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rfps: %w", err)
	}
	defer rows.Close()

	rfps := make([]*core.RFP, 0)
	for rows.Next() {
		rfp, err := scanRFP(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rfp: %w", err)
		}
		rfps = append(rfps, rfp)
	}
	return rfps, rows.Err()
}

// LatestRFP returns the most recently created RFP
func (s *SQLStore) LatestRFP(ctx context.Context) (*core.RFP, error) {
	rfp, err := scanRFP(s.db.QueryRowContext(ctx, `
		SELECT `+rfpColumns+` FROM rfps ORDER BY created_at DESC, id DESC LIMIT 1
	`))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no rfps", core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query latest rfp: %w", err)
	}
	return rfp, nil
}

// DeleteRFP removes an RFP; its proposals go with it through the foreign key
func (s *SQLStore) DeleteRFP(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "rfps", "rfp", id)
}

// CreateVendor stores a new vendor and sets its ID and CreatedAt
func (s *SQLStore) CreateVendor(ctx context.Context, vendor *core.Vendor) error {
	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO vendors (name, email, contact, created_at)
		VALUES (?, ?, ?, ?)
	`, vendor.Name, vendor.Email, vendor.Contact, createdAt)
	if err != nil {
		if s.isDuplicate(err) {
			return duplicateEmail(vendor.Email)
		}
		return fmt.Errorf("failed to insert vendor: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read vendor id: %w", err)
	}
	vendor.ID = id
	vendor.CreatedAt = createdAt
	return nil
}

// GetVendor returns a vendor by ID
func (s *SQLStore) GetVendor(ctx context.Context, id int64) (*core.Vendor, error) {
	vendor, err := scanVendor(s.db.QueryRowContext(ctx, `
		SELECT `+vendorColumns+` FROM vendors WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: vendor %d", core.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to query vendor %d: %w", id, err)
	}
	return vendor, nil
}

// UpdateVendor replaces the name, email and contact of a vendor
func (s *SQLStore) UpdateVendor(ctx context.Context, vendor *core.Vendor) error {
	if _, err := s.GetVendor(ctx, vendor.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE vendors SET name = ?, email = ?, contact = ? WHERE id = ?
	`, vendor.Name, vendor.Email, vendor.Contact, vendor.ID)
	if err != nil {
		if s.isDuplicate(err) {
			return duplicateEmail(vendor.Email)
		}
		return fmt.Errorf("failed to update vendor %d: %w", vendor.ID, err)
	}
	return nil
}

// DeleteVendor removes a vendor; its proposals go with it through the foreign key
func (s *SQLStore) DeleteVendor(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "vendors", "vendor", id)
}

// ListVendors returns all vendors, newest first
func (s *SQLStore) ListVendors(ctx context.Context) ([]*core.Vendor, error) {
	return s.queryVendors(ctx, `
		SELECT `+vendorColumns+` FROM vendors ORDER BY created_at DESC, id DESC
	`)
}

// GetVendorsByIDs returns the vendors that exist among ids, in id order
func (s *SQLStore) GetVendorsByIDs(ctx context.Context, ids []int64) ([]*core.Vendor, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []*core.Vendor{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryVendors(ctx, `
		SELECT `+vendorColumns+` FROM vendors WHERE id IN (`+placeholders+`) ORDER BY id
	`, args...)
}

// FindVendorByEmail returns the vendor whose email equals email
func (s *SQLStore) FindVendorByEmail(ctx context.Context, email string) (*core.Vendor, error) {
	vendor, err := scanVendor(s.db.QueryRowContext(ctx, `
		SELECT `+vendorColumns+` FROM vendors WHERE email = ?
	`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: vendor with email %s", core.ErrNotFound, email)
		}
		return nil, fmt.Errorf("failed to query vendor by email: %w", err)
	}
	return vendor, nil
}

func (s *SQLStore) queryVendors(ctx context.Context, query string, args ...any) ([]*core.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	vendors := make([]*core.Vendor, 0)
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// CreateProposal stores a new proposal and sets its ID and CreatedAt
func (s *SQLStore) CreateProposal(ctx context.Context, proposal *core.Proposal) error {
	parsed, err := json.Marshal(proposal.Parsed)
	if err != nil {
		return fmt.Errorf("failed to encode parsed terms: %w", err)
	}

	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO proposals (rfp_id, vendor_id, parsed, ai_summary, raw_email, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, proposal.RFPID, proposal.VendorID, string(parsed), proposal.AISummary, proposal.RawEmail, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert proposal: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read proposal id: %w", err)
	}
	proposal.ID = id
	proposal.CreatedAt = createdAt
	return nil
}

// ListProposalsByRFP returns the proposals of an RFP, oldest first
func (s *SQLStore) ListProposalsByRFP(ctx context.Context, rfpID int64) ([]*core.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE rfp_id = ? ORDER BY id
	`, rfpID)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()

	proposals := make([]*core.Proposal, 0)
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

func (s *SQLStore) deleteByID(ctx context.Context, table, kind string, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", core.ErrNotFound, kind, id)
	}
	s.logger.Debug("Deleted row", zap.String("table", table), zap.Int64("id", id))
	return nil
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrConnection, s.driver, err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
