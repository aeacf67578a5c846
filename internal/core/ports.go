package core

import (
	"context"
)

// TextGenerator defines the interface for interacting with generative-text services
type TextGenerator interface {
	// Generate sends a prompt and returns the raw completion text
	Generate(ctx context.Context, prompt string) (string, error)
}

// Store defines the interface for persisting RFPs, vendors and proposals.
// Lookups of absent records return an error wrapping ErrNotFound.
type Store interface {
	CreateRFP(ctx context.Context, rfp *RFP) error
	GetRFP(ctx context.Context, id int64) (*RFP, error)
	// ListRFPs returns all RFPs, newest first
	ListRFPs(ctx context.Context) ([]*RFP, error)
	// LatestRFP returns the most recently created RFP
	LatestRFP(ctx context.Context) (*RFP, error)
	// DeleteRFP removes an RFP and the proposals attached to it
	DeleteRFP(ctx context.Context, id int64) error

	CreateVendor(ctx context.Context, vendor *Vendor) error
	GetVendor(ctx context.Context, id int64) (*Vendor, error)
	UpdateVendor(ctx context.Context, vendor *Vendor) error
	DeleteVendor(ctx context.Context, id int64) error
	// ListVendors returns all vendors, newest first
	ListVendors(ctx context.Context) ([]*Vendor, error)
	// GetVendorsByIDs returns the vendors that exist among ids, in id order
	GetVendorsByIDs(ctx context.Context, ids []int64) ([]*Vendor, error)
	// FindVendorByEmail returns the vendor whose email equals email exactly
	FindVendorByEmail(ctx context.Context, email string) (*Vendor, error)

	CreateProposal(ctx context.Context, proposal *Proposal) error
	// ListProposalsByRFP returns the proposals of an RFP, oldest first
	ListProposalsByRFP(ctx context.Context, rfpID int64) ([]*Proposal, error)

	Ping(ctx context.Context) error
	Close() error
}

// MailSender defines the interface for outbound email
type MailSender interface {
	Send(ctx context.Context, email *OutboundEmail) error
}

// Mailbox is an open, authenticated inbox session
type Mailbox interface {
	// ListUnseen returns the UIDs of messages without the \Seen flag, in mailbox order
	ListUnseen(ctx context.Context) ([]uint32, error)
	// Fetch retrieves the envelope and body text of a message
	Fetch(ctx context.Context, uid uint32) (*InboundMessage, error)
	// Envelope retrieves the sender, subject and date of a message. It never
	// reads the body, so the \Seen flag is left alone.
	Envelope(ctx context.Context, uid uint32) (*InboundMessage, error)
	// MarkSeen sets the \Seen flag on a message
	MarkSeen(ctx context.Context, uid uint32) error
	// Close logs out and releases the connection
	Close() error
}

// MailboxDialer opens inbox sessions
type MailboxDialer interface {
	// Open connects, authenticates and selects the configured mailbox
	Open(ctx context.Context) (Mailbox, error)
	// CheckCredentials reports missing inbox settings without connecting
	CheckCredentials() error
}

// PollLock guards against overlapping inbox polls
type PollLock interface {
	// TryAcquire takes the lock without blocking. ok is false if another holder has it.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}
