package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS rfps (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	structured JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS vendors (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL,
	contact TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS proposals (
	id BIGSERIAL PRIMARY KEY,
	rfp_id BIGINT NOT NULL REFERENCES rfps(id) ON DELETE CASCADE,
	vendor_id BIGINT NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
	parsed JSONB NOT NULL,
	ai_summary TEXT NOT NULL DEFAULT '',
	raw_email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rfps_created_at ON rfps(created_at);
DROP INDEX IF EXISTS idx_vendors_email;
CREATE UNIQUE INDEX IF NOT EXISTS idx_vendors_email_unique ON vendors(email);
CREATE INDEX IF NOT EXISTS idx_proposals_rfp_id ON proposals(rfp_id);
`

// PostgresStore is a PostgreSQL implementation of the Store interface
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool
func NewPostgresStore(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL URL: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to connect to PostgreSQL: %w", core.ErrConnection, err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL store",
		zap.String("host", pool.Config().ConnConfig.Host),
		zap.String("database", pool.Config().ConnConfig.Database))
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// CreateRFP stores a new RFP and sets its ID and CreatedAt
func (s *PostgresStore) CreateRFP(ctx context.Context, rfp *core.RFP) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO rfps (title, description, structured)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, rfp.Title, rfp.Description, rfp.Structured).Scan(&rfp.ID, &rfp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rfp: %w", err)
	}
	return nil
}

// GetRFP returns an RFP by ID
func (s *PostgresStore) GetRFP(ctx context.Context, id int64) (*core.RFP, error) {
	rfp := &core.RFP{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+rfpColumns+` FROM rfps WHERE id = $1
	`, id).Scan(&rfp.ID, &rfp.Title, &rfp.Description, &rfp.Structured, &rfp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: rfp %d", core.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to query rfp %d: %w", id, err)
	}
	return rfp, nil
}

// ListRFPs returns all RFPs, newest first
func (s *PostgresStore) ListRFPs(ctx context.Context) ([]*core.RFP, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+rfpColumns+` FROM rfps ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rfps: %w", err)
	}
	defer rows.Close()

	rfps := make([]*core.RFP, 0)
	for rows.Next() {
		rfp := &core.RFP{}
		if err := rows.Scan(&rfp.ID, &rfp.Title, &rfp.Description, &rfp.Structured, &rfp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rfp: %w", err)
		}
		rfps = append(rfps, rfp)
	}
	return rfps, rows.Err()
}

// LatestRFP returns the most recently created RFP
func (s *PostgresStore) LatestRFP(ctx context.Context) (*core.RFP, error) {
	rfp := &core.RFP{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+rfpColumns+` FROM rfps ORDER BY created_at DESC, id DESC LIMIT 1
	`).Scan(&rfp.ID, &rfp.Title, &rfp.Description, &rfp.Structured, &rfp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no rfps", core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query latest rfp: %w", err)
	}
	return rfp, nil
}

// DeleteRFP removes an RFP; its proposals go with it through the foreign key
func (s *PostgresStore) DeleteRFP(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rfps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rfp %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: rfp %d", core.ErrNotFound, id)
	}
	return nil
}

// CreateVendor stores a new vendor and sets its ID and CreatedAt
func (s *PostgresStore) CreateVendor(ctx context.Context, vendor *core.Vendor) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO vendors (name, email, contact)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, vendor.Name, vendor.Email, vendor.Contact).Scan(&vendor.ID, &vendor.CreatedAt)
	if err != nil {
		if isPostgresDuplicate(err) {
			return duplicateEmail(vendor.Email)
		}
		return fmt.Errorf("failed to insert vendor: %w", err)
	}
	return nil
}

// GetVendor returns a vendor by ID
func (s *PostgresStore) GetVendor(ctx context.Context, id int64) (*core.Vendor, error) {
	vendor, err := scanVendor(s.pool.QueryRow(ctx, `
		SELECT `+vendorColumns+` FROM vendors WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: vendor %d", core.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to query vendor %d: %w", id, err)
	}
	return vendor, nil
}

// UpdateVendor replaces the name, email and contact of a vendor
func (s *PostgresStore) UpdateVendor(ctx context.Context, vendor *core.Vendor) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE vendors SET name = $1, email = $2, contact = $3 WHERE id = $4
	`, vendor.Name, vendor.Email, vendor.Contact, vendor.ID)
	if err != nil {
		if isPostgresDuplicate(err) {
			return duplicateEmail(vendor.Email)
		}
		return fmt.Errorf("failed to update vendor %d: %w", vendor.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: vendor %d", core.ErrNotFound, vendor.ID)
	}
	return nil
}

// DeleteVendor removes a vendor; its proposals go with it through the foreign key
func (s *PostgresStore) DeleteVendor(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vendor %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: vendor %d", core.ErrNotFound, id)
	}
	return nil
}

// ListVendors returns all vendors, newest first
func (s *PostgresStore) ListVendors(ctx context.Context) ([]*core.Vendor, error) {
	return s.queryVendors(ctx, `
		SELECT `+vendorColumns+` FROM vendors ORDER BY created_at DESC, id DESC
	`)
}

// GetVendorsByIDs returns the vendors that exist among ids, in id order
func (s *PostgresStore) GetVendorsByIDs(ctx context.Context, ids []int64) ([]*core.Vendor, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []*core.Vendor{}, nil
	}
	return s.queryVendors(ctx, `
		SELECT `+vendorColumns+` FROM vendors WHERE id = ANY($1) ORDER BY id
	`, ids)
}

// FindVendorByEmail returns the vendor whose email equals email
func (s *PostgresStore) FindVendorByEmail(ctx context.Context, email string) (*core.Vendor, error) {
	vendor, err := scanVendor(s.pool.QueryRow(ctx, `
		SELECT `+vendorColumns+` FROM vendors WHERE email = $1
	`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: vendor with email %s", core.ErrNotFound, email)
		}
		return nil, fmt.Errorf("failed to query vendor by email: %w", err)
	}
	return vendor, nil
}

func (s *PostgresStore) queryVendors(ctx context.Context, query string, args ...any) ([]*core.Vendor, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
func (s *PostgresStore) CreateProposal(ctx context.Context, proposal *core.Proposal) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO proposals (rfp_id, vendor_id, parsed, ai_summary, raw_email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, proposal.RFPID, proposal.VendorID, proposal.Parsed, proposal.AISummary, proposal.RawEmail).
		Scan(&proposal.ID, &proposal.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert proposal: %w", err)
	}
	return nil
}

// ListProposalsByRFP returns the proposals of an RFP, oldest first
func (s *PostgresStore) ListProposalsByRFP(ctx context.Context, rfpID int64) ([]*core.Proposal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+proposalColumns+` FROM proposals WHERE rfp_id = $1 ORDER BY id
	`, rfpID)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()

	proposals := make([]*core.Proposal, 0)
	for rows.Next() {
		p := &core.Proposal{}
		if err := rows.Scan(&p.ID, &p.RFPID, &p.VendorID, &p.Parsed, &p.AISummary, &p.RawEmail, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: postgres: %w", core.ErrConnection, err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// unique_violation
const postgresUniqueViolation = "23505"

func isPostgresDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation
}
