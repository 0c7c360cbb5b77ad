package order

import (
	"errors"
	"time"
)

// Actor identifies which side of an order performs an action.
type Actor string

const (
	ActorOwner  Actor = "owner"
	ActorVendor Actor = "vendor"
)

// Status enumerates the purchase order lifecycle.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusInNegotiation Status = "in_negotiation"
	StatusAccepted      Status = "accepted"
	StatusRejected      Status = "rejected"
	StatusInProgress    Status = "in_progress"
	StatusShipped       Status = "shipped"
	StatusDelivered     Status = "delivered"
	StatusCompleted     Status = "completed"
)

// EventKind enumerates negotiation ledger entry types.
type EventKind string

const (
	KindOffer        EventKind = "offer"
	KindCounterOffer EventKind = "counter_offer"
	KindAccept       EventKind = "accept"
	KindReject       EventKind = "reject"
	KindMessage      EventKind = "message"
)

// Item is a single order line. Insertion order is display order; names are
// not unique within an order.
type Item struct {
	MaterialName string  `json:"materialName"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
}

// PurchaseOrder domain model.
type PurchaseOrder struct {
	ID          int64      `json:"id"`
	Number      string     `json:"purchaseOrderNumber"`
	ProjectID   int64      `json:"project"`
	VendorID    int64      `json:"vendor"`
	Status      Status     `json:"status"`
	Items       []Item     `json:"items"`
	TotalAmount float64    `json:"totalAmount"`
	FinalAmount *float64   `json:"finalAmount,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// NegotiationEvent is one entry of an order's append-only negotiation ledger.
// Amount is required for offer, counter_offer and accept entries.
type NegotiationEvent struct {
	ID      int64     `json:"id"`
	OrderID int64     `json:"order"`
	Actor   Actor     `json:"actor"`
	Kind    EventKind `json:"kind"`
	Amount  *float64  `json:"amount,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"timestamp"`
}

var (
	// ErrInvalidTransition occurs when the requested event is not legal from
	// the order's current status.
	ErrInvalidTransition = errors.New("order: invalid state transition")
	// ErrSelfAcceptance occurs when an actor tries to accept their own
	// outstanding offer.
	ErrSelfAcceptance = errors.New("order: cannot accept own offer")
	// ErrStaleNegotiation occurs when a negotiation write lost a concurrency
	// race and the client must refresh.
	ErrStaleNegotiation = errors.New("order: negotiation state is stale")
	// ErrNotFound indicates the order id is unknown.
	ErrNotFound = errors.New("order: not found")
	// ErrInvalidAmount indicates a missing or negative amount on an event
	// that requires one.
	ErrInvalidAmount = errors.New("order: invalid amount")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("order: invalid input")
)

// RecencyTime returns the timestamp that drives ordering in aggregated
// timelines: updatedAt when present, createdAt otherwise.
func (o PurchaseOrder) RecencyTime() time.Time {
	if o.UpdatedAt != nil && !o.UpdatedAt.IsZero() {
		return *o.UpdatedAt
	}
	return o.CreatedAt
}

// RequiresAmount reports whether the event kind must carry an amount.
func (k EventKind) RequiresAmount() bool {
	return k == KindOffer || k == KindCounterOffer || k == KindAccept
}
