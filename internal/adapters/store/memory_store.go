package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mikey/rfp-manager/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Records are copied on the way in and out so callers never share state.
type MemoryStore struct {
	mu        sync.RWMutex
	rfps      map[int64]core.RFP
	vendors   map[int64]core.Vendor
	proposals map[int64]core.Proposal
	nextID    map[string]int64
	now       func() time.Time
	logger    *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		rfps:      make(map[int64]core.RFP),
		vendors:   make(map[int64]core.Vendor),
		proposals: make(map[int64]core.Proposal),
		nextID:    make(map[string]int64),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

func (s *MemoryStore) allocID(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

// CreateRFP stores a new RFP and sets its ID and CreatedAt
func (s *MemoryStore) CreateRFP(ctx context.Context, rfp *core.RFP) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rfp.ID = s.allocID("rfps")
	rfp.CreatedAt = s.now()
	s.rfps[rfp.ID] = cloneRFP(*rfp)
	return nil
}

// GetRFP returns an RFP by ID
func (s *MemoryStore) GetRFP(ctx context.Context, id int64) (*core.RFP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rfp, ok := s.rfps[id]
	if !ok {
		return nil, fmt.Errorf("%w: rfp %d", core.ErrNotFound, id)
	}
	out := cloneRFP(rfp)
	return &out, nil
}

// ListRFPs returns all RFPs, newest first
func (s *MemoryStore) ListRFPs(ctx context.Context) ([]*core.RFP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.RFP, 0, len(s.rfps))
	for _, rfp := range s.rfps {
		c := cloneRFP(rfp)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

// LatestRFP returns the most recently created RFP
func (s *MemoryStore) LatestRFP(ctx context.Context) (*core.RFP, error) {
	rfps, err := s.ListRFPs(ctx)
	if err != nil {
		return nil, err
	}
	if len(rfps) == 0 {
		return nil, fmt.Errorf("%w: no rfps", core.ErrNotFound)
	}
	return rfps[0], nil
}

// DeleteRFP removes an RFP and its proposals
func (s *MemoryStore) DeleteRFP(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rfps[id]; !ok {
		return fmt.Errorf("%w: rfp %d", core.ErrNotFound, id)
	}
	delete(s.rfps, id)
	for pid, p := range s.proposals {
		if p.RFPID == id {
			delete(s.proposals, pid)
		}
	}
	return nil
}

// CreateVendor stores a new vendor and sets its ID and CreatedAt
func (s *MemoryStore) CreateVendor(ctx context.Context, vendor *core.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(vendor.Email, 0) {
		return duplicateEmail(vendor.Email)
	}
	vendor.ID = s.allocID("vendors")
	vendor.CreatedAt = s.now()
	s.vendors[vendor.ID] = *vendor
	return nil
}

// GetVendor returns a vendor by ID
func (s *MemoryStore) GetVendor(ctx context.Context, id int64) (*core.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vendor, ok := s.vendors[id]
	if !ok {
		return nil, fmt.Errorf("%w: vendor %d", core.ErrNotFound, id)
	}
	return &vendor, nil
}

// UpdateVendor replaces the name, email and contact of a vendor
func (s *MemoryStore) UpdateVendor(ctx context.Context, vendor *core.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.vendors[vendor.ID]
	if !ok {
		return fmt.Errorf("%w: vendor %d", core.ErrNotFound, vendor.ID)
	}
	if s.emailTaken(vendor.Email, vendor.ID) {
		return duplicateEmail(vendor.Email)
	}
	existing.Name = vendor.Name
	existing.Email = vendor.Email
	existing.Contact = vendor.Contact
	s.vendors[vendor.ID] = existing
	return nil
}

// DeleteVendor removes a vendor and its proposals
func (s *MemoryStore) DeleteVendor(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vendors[id]; !ok {
		return fmt.Errorf("%w: vendor %d", core.ErrNotFound, id)
	}
	delete(s.vendors, id)
	for pid, p := range s.proposals {
		if p.VendorID == id {
			delete(s.proposals, pid)
		}
	}
	return nil
}

// ListVendors returns all vendors, newest first
func (s *MemoryStore) ListVendors(ctx context.Context) ([]*core.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Vendor, 0, len(s.vendors))
	for _, v := range s.vendors {
		v := v
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

// GetVendorsByIDs returns the vendors that exist among ids, in id order
func (s *MemoryStore) GetVendorsByIDs(ctx context.Context, ids []int64) ([]*core.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Vendor, 0, len(ids))
	for _, id := range uniqueIDs(ids) {
		if v, ok := s.vendors[id]; ok {
			out = append(out, &v)
		}
	}
	return out, nil
}

// FindVendorByEmail returns the vendor whose email equals email
func (s *MemoryStore) FindVendorByEmail(ctx context.Context, email string) (*core.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.vendors {
		if v.Email == email {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: vendor with email %s", core.ErrNotFound, email)
}

// emailTaken reports whether a vendor other than except already uses email
func (s *MemoryStore) emailTaken(email string, except int64) bool {
	for id, v := range s.vendors {
		if id != except && v.Email == email {
			return true
		}
	}
	return false
}

// CreateProposal stores a new proposal. The RFP and vendor must exist.
func (s *MemoryStore) CreateProposal(ctx context.Context, proposal *core.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rfps[proposal.RFPID]; !ok {
		return fmt.Errorf("rfp %d does not exist", proposal.RFPID)
	}
	if _, ok := s.vendors[proposal.VendorID]; !ok {
		return fmt.Errorf("vendor %d does not exist", proposal.VendorID)
	}

	proposal.ID = s.allocID("proposals")
	proposal.CreatedAt = s.now()
	s.proposals[proposal.ID] = *proposal
	return nil
}

// ListProposalsByRFP returns the proposals of an RFP, oldest first
func (s *MemoryStore) ListProposalsByRFP(ctx context.Context, rfpID int64) ([]*core.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Proposal, 0)
	for _, p := range s.proposals {
		if p.RFPID == rfpID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

func cloneRFP(rfp core.RFP) core.RFP {
	rfp.Structured.Items = append([]core.RFPItem(nil), rfp.Structured.Items...)
	if rfp.Structured.Budget != nil {
		b := *rfp.Structured.Budget
		rfp.Structured.Budget = &b
	}
	return rfp
}

func newerFirst(ti time.Time, idi int64, tj time.Time, idj int64) bool {
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return idi > idj
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
