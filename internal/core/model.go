package core

import (
	"time"
)

// DefaultRFPTitle is used when the generator does not return a title
const DefaultRFPTitle = "AI Generated RFP"

// RFPItem is a single line item of an RFP
type RFPItem struct {
	Name  string  `json:"name"`
	Qty   float64 `json:"qty"`
	Specs string  `json:"specs,omitempty"`
}

// RFPStructured is the structured payload of an RFP
type RFPStructured struct {
	Title            string    `json:"title,omitempty"`
	Items            []RFPItem `json:"items"`
	Budget           *float64  `json:"budget"`
	DeliveryTimeline string    `json:"delivery_timeline,omitempty"`
	PaymentTerms     string    `json:"payment_terms,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

// RFP represents a request for proposal
type RFP struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Structured  RFPStructured `json:"structured"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Vendor represents a supplier that can receive RFPs
type Vendor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Contact   string    `json:"contact,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName returns the vendor name, or its email when no name is set
func (v *Vendor) DisplayName() string {
	if v.Name != "" {
		return v.Name
	}
	return v.Email
}

// ProposalTerms holds the commercial terms extracted from a vendor reply
type ProposalTerms struct {
	Price        float64 `json:"price"`
	DeliveryDays float64 `json:"delivery_days"`
	Warranty     string  `json:"warranty"`
	Terms        string  `json:"terms"`
	Notes        string  `json:"notes"`
}

// Proposal is a vendor's response to an RFP
type Proposal struct {
	ID        int64         `json:"id"`
	RFPID     int64         `json:"rfpId"`
	VendorID  int64         `json:"vendorId"`
	Parsed    ProposalTerms `json:"parsed"`
	AISummary string        `json:"aiSummary"`
	RawEmail  string        `json:"rawEmail"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ProposalWithVendor joins a proposal to the vendor that sent it
type ProposalWithVendor struct {
	Proposal *Proposal `json:"proposal"`
	Vendor   *Vendor   `json:"vendor"`
}

// RFPDetail is an RFP together with the proposals received for it
type RFPDetail struct {
	RFP       *RFP                  `json:"rfp"`
	Proposals []*ProposalWithVendor `json:"proposals"`
}

// Recommendation is the generator's choice of winning vendor
type Recommendation struct {
	Winner      int64  `json:"winner"`
	Explanation string `json:"explanation"`
}

// PollResult is the outcome of one inbox poll
type PollResult struct {
	Status    string   `json:"status"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// DispatchResult is the outcome of sending an RFP to a set of vendors
type DispatchResult struct {
	Success bool     `json:"success"`
	SentTo  []string `json:"sentTo"`
	Errors  []string `json:"errors"`
	Total   int      `json:"total"`
}

// InboundMessage is a message fetched from the inbox
type InboundMessage struct {
	UID     uint32
	From    string
	Subject string
	Body    string
	Date    time.Time
}

// OutboundEmail is an HTML message to a single recipient
type OutboundEmail struct {
	To      string
	Subject string
	HTML    string
}
