package materials

import (
	"context"
	"fmt"
	"time"

	"github.com/brickline-erp/brickline/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequest(ctx context.Context, id int64) (Request, error)
	ListRequests(ctx context.Context, filter ListFilter) ([]Request, error)
}

// AuditPort records request decisions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates material request flows.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs a material request service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// CreateInput describes a new material request.
type CreateInput struct {
	ProjectID   int64
	RequestedBy int64
	Priority    Priority
	Lines       []Line
	RequiredBy  *time.Time
	Note        string
}

// Create registers a material request in pending status.
func (s *Service) Create(ctx context.Context, input CreateInput) (Request, error) {
	if len(input.Lines) == 0 {
		return Request{}, ErrValidation
	}
	for _, line := range input.Lines {
		if line.Name == "" || line.Quantity <= 0 {
			return Request{}, ErrValidation
		}
	}
	if input.Priority == "" {
		input.Priority = PriorityMedium
	}
	if !input.Priority.Valid() {
		return Request{}, ErrValidation
	}
	req := Request{
		Number:      fmt.Sprintf("MR-%d", time.Now().UnixNano()),
		ProjectID:   input.ProjectID,
		RequestedBy: input.RequestedBy,
		Status:      StatusPending,
		Priority:    input.Priority,
		Lines:       input.Lines,
		RequiredBy:  input.RequiredBy,
		Note:        input.Note,
		CreatedAt:   s.now(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateRequest(ctx, req)
		if err != nil {
			return err
		}
		req.ID = id
		for i, line := range req.Lines {
			if err := tx.InsertLine(ctx, id, i, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	s.recordAudit(ctx, "MATERIAL_REQUEST_CREATE", req.ID, map[string]any{"number": req.Number, "priority": string(req.Priority)})
	return req, nil
}

// Approve marks a pending request approved.
func (s *Service) Approve(ctx context.Context, id int64) error {
	return s.decide(ctx, id, StatusApproved, "MATERIAL_REQUEST_APPROVE")
}

// Reject marks a pending request rejected.
func (s *Service) Reject(ctx context.Context, id int64) error {
	return s.decide(ctx, id, StatusRejected, "MATERIAL_REQUEST_REJECT")
}

func (s *Service) decide(ctx context.Context, id int64, to RequestStatus, action string) error {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != StatusPending {
		return ErrAlreadyDecided
	}
	at := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, id, to, at)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, action, id, map[string]any{"number": req.Number, "status": string(to)})
	return nil
}

// Get returns a single request with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Request, error) {
	return s.repo.GetRequest(ctx, id)
}

// ListFilter narrows request listings.
type ListFilter struct {
	ProjectID int64
	Status    RequestStatus
	Priority  Priority
}

// List returns requests matching the filter, urgent first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Request, error) {
	return s.repo.ListRequests(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "material_request", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
