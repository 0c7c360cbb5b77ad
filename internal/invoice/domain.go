package invoice

import (
	"errors"
	"time"
)

// Status enumerates the vendor invoice lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid"
)

// displayLabels carries the historical UI naming: a pending invoice shows as
// "Negotiation" and an approved one as "Under Review".
var displayLabels = map[Status]string{
	StatusPending:  "Negotiation",
	StatusApproved: "Under Review",
	StatusPaid:     "Paid",
}

// DisplayLabel returns the UI label for a status, falling back to the raw
// value for unknown ones.
func DisplayLabel(s Status) string {
	if label, ok := displayLabels[s]; ok {
		return label
	}
	return string(s)
}

// Attachment is an uploaded document on an invoice. Attachments form an
// unordered set and are deletable individually at any invoice status.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Invoice is a vendor invoice, optionally raised against a purchase order.
// TotalAmount and Amount are historical synonyms for the same figure; both
// key names must be accepted, TotalAmount preferred. Resolve through
// AmountFor, never inline.
type Invoice struct {
	ID          int64        `json:"id"`
	Number      string       `json:"invoiceNumber"`
	VendorID    int64        `json:"vendor"`
	ProjectID   int64        `json:"project"`
	OrderID     *int64       `json:"purchaseOrder,omitempty"`
	Status      Status       `json:"status"`
	TotalAmount *float64     `json:"totalAmount,omitempty"`
	Amount      *float64     `json:"amount,omitempty"`
	Attachments []Attachment `json:"attachments"`
	DueAt       *time.Time   `json:"dueDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

var (
	// ErrNotFound indicates the invoice id is unknown.
	ErrNotFound = errors.New("invoice: not found")
	// ErrOrderNotEligible occurs when the referenced order is not in an
	// invoice-eligible status.
	ErrOrderNotEligible = errors.New("invoice: order not invoice-eligible")
	// ErrDuplicateForOrder occurs when an invoice already references the order.
	ErrDuplicateForOrder = errors.New("invoice: order already invoiced")
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("invoice: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("invoice: invalid input")
)
