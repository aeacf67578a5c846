package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CreateVendor validates and stores a new vendor
func (s *Service) CreateVendor(ctx context.Context, vendor *Vendor) (*Vendor, error) {
	if err := s.prepareVendor(vendor); err != nil {
		return nil, err
	}
	if err := s.store.CreateVendor(ctx, vendor); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: create vendor: %w", ErrPersistence, err)
	}
	return vendor, nil
}

// UpdateVendor replaces the editable fields of an existing vendor
func (s *Service) UpdateVendor(ctx context.Context, vendor *Vendor) (*Vendor, error) {
	existing, err := s.store.GetVendor(ctx, vendor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.prepareVendor(vendor); err != nil {
		return nil, err
	}
	vendor.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateVendor(ctx, vendor); err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: update vendor %d: %w", ErrPersistence, vendor.ID, err)
	}
	return vendor, nil
}

// GetVendor returns a single vendor
func (s *Service) GetVendor(ctx context.Context, id int64) (*Vendor, error) {
	return s.store.GetVendor(ctx, id)
}

// ListVendors returns all vendors, newest first
func (s *Service) ListVendors(ctx context.Context) ([]*Vendor, error) {
	vendors, err := s.store.ListVendors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	return vendors, nil
}

// DeleteVendor removes a vendor and the proposals it sent
func (s *Service) DeleteVendor(ctx context.Context, id int64) error {
	if err := s.store.DeleteVendor(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: delete vendor %d: %w", ErrPersistence, id, err)
	}
	return nil
}

func (s *Service) prepareVendor(vendor *Vendor) error {
	vendor.Name = strings.TrimSpace(vendor.Name)
	vendor.Contact = strings.TrimSpace(vendor.Contact)
	if strings.TrimSpace(vendor.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	email, ok := s.matcher.Normalize(vendor.Email)
	if !ok {
		return fmt.Errorf("%w: invalid email address %q", ErrValidation, vendor.Email)
	}
	vendor.Email = email
	return nil
}
