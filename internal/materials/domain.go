package materials

import (
	"errors"
	"time"
)

// RequestStatus enumerates the material request workflow.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Priority ranks a request for the procurement queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = map[Priority]struct{}{
	PriorityLow: {}, PriorityMedium: {}, PriorityHigh: {}, PriorityUrgent: {},
}

// Valid reports whether the priority is a known value.
func (p Priority) Valid() bool {
	_, ok := validPriorities[p]
	return ok
}

// Line is a single requested material.
type Line struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
	Category string `json:"category,omitempty"`
}

// Request is a site request for materials, the precursor to a purchase
// order. Approval does not create the order; procurement does that
// explicitly.
type Request struct {
	ID          int64         `json:"id"`
	Number      string        `json:"requestNumber"`
	ProjectID   int64         `json:"project"`
	RequestedBy int64         `json:"requestedBy"`
	Status      RequestStatus `json:"status"`
	Priority    Priority      `json:"priority"`
	Lines       []Line        `json:"materials"`
	RequiredBy  *time.Time    `json:"requiredBy,omitempty"`
	Note        string        `json:"note,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	DecidedAt   *time.Time    `json:"decidedAt,omitempty"`
}

var (
	// ErrNotFound indicates the request id is unknown.
	ErrNotFound = errors.New("materials: request not found")
	// ErrAlreadyDecided occurs when approving or rejecting a request
	// that already left pending.
	ErrAlreadyDecided = errors.New("materials: request already decided")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("materials: invalid input")
)
