package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brickline-erp/brickline/internal/order"
	"github.com/brickline-erp/brickline/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListByVendor(ctx context.Context, vendorID int64) ([]Invoice, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Invoice, error)
}

// OrderPort exposes the order lookup the invoice gate needs.
type OrderPort interface {
	GetOrder(ctx context.Context, id int64) (order.PurchaseOrder, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ViewInvalidator mirrors order.ViewInvalidator for cached aggregations.
type ViewInvalidator interface {
	Bump(ctx context.Context) error
}

// Service orchestrates vendor invoice flows.
type Service struct {
	repo   RepositoryPort
	orders OrderPort
	audit  AuditPort
	views  ViewInvalidator
	now    func() time.Time
}

// NewService constructs an invoice service.
func NewService(repo RepositoryPort, orders OrderPort, audit AuditPort, views ViewInvalidator) *Service {
	return &Service{
		repo:   repo,
		orders: orders,
		audit:  audit,
		views:  views,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput describes an invoice creation payload. OrderID nil means a
// standalone invoice with no purchase order behind it.
type CreateInput struct {
	Number    string
	VendorID  int64
	ProjectID int64
	OrderID   *int64
	Amount    float64
	DueAt     *time.Time
}

// CanCreateForOrder checks the invoice gate for an order id.
func (s *Service) CanCreateForOrder(ctx context.Context, orderID int64) (bool, error) {
	po, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	existing, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	return CanCreateInvoice(po, existing), nil
}

// Create raises a vendor invoice. Order-backed invoices pass the gate first;
// the client is never trusted to have checked it.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	if input.Amount < 0 {
		return Invoice{}, ErrValidation
	}
	if input.OrderID != nil {
		po, err := s.orders.GetOrder(ctx, *input.OrderID)
		if err != nil {
			return Invoice{}, err
		}
		existing, err := s.repo.ListByOrder(ctx, *input.OrderID)
		if err != nil {
			return Invoice{}, err
		}
		if !po.Status.InvoiceEligible() {
			return Invoice{}, ErrOrderNotEligible
		}
		if !CanCreateInvoice(po, existing) {
			return Invoice{}, ErrDuplicateForOrder
		}
	}
	if input.Number == "" {
		input.Number = fmt.Sprintf("INV-%d", time.Now().UnixNano())
	}
	amount := input.Amount
	inv := Invoice{
		Number:      input.Number,
		VendorID:    input.VendorID,
		ProjectID:   input.ProjectID,
		OrderID:     input.OrderID,
		Status:      StatusPending,
		TotalAmount: &amount,
		DueAt:       input.DueAt,
		CreatedAt:   s.now(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, "INVOICE_CREATE", inv.ID, map[string]any{"number": inv.Number, "total": amount})
	s.bumpViews(ctx)
	return inv, nil
}

// Approve moves a pending invoice under review into approved.
func (s *Service) Approve(ctx context.Context, invoiceID int64) error {
	return s.setStatus(ctx, invoiceID, StatusPending, StatusApproved, "INVOICE_APPROVE")
}

// MarkPaid settles an approved invoice.
func (s *Service) MarkPaid(ctx context.Context, invoiceID int64) error {
	return s.setStatus(ctx, invoiceID, StatusApproved, StatusPaid, "INVOICE_PAID")
}

func (s *Service) setStatus(ctx context.Context, invoiceID int64, from, to Status, action string) error {
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != from {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, invoiceID, to)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, action, invoiceID, map[string]any{"number": inv.Number, "status": string(to)})
	s.bumpViews(ctx)
	return nil
}

// AttachmentInput describes an uploaded document reference.
type AttachmentInput struct {
	Filename string
	URL      string
	MimeType string
	Size     int64
}

// AddAttachment links an uploaded document to the invoice.
func (s *Service) AddAttachment(ctx context.Context, invoiceID int64, input AttachmentInput) (Attachment, error) {
	if input.Filename == "" || input.URL == "" {
		return Attachment{}, ErrValidation
	}
	if _, err := s.repo.GetInvoice(ctx, invoiceID); err != nil {
		return Attachment{}, err
	}
	att := Attachment{
		ID:       uuid.NewString(),
		Filename: input.Filename,
		URL:      input.URL,
		MimeType: input.MimeType,
		Size:     input.Size,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertAttachment(ctx, invoiceID, att)
	})
	if err != nil {
		return Attachment{}, err
	}
	s.recordAudit(ctx, "INVOICE_ATTACH", invoiceID, map[string]any{"attachment": att.ID, "filename": att.Filename})
	return att, nil
}

// DeleteAttachment removes a document from the invoice. Allowed at any
// invoice status, including paid: data hygiene, not a financial action.
func (s *Service) DeleteAttachment(ctx context.Context, invoiceID int64, attachmentID string) error {
	if _, err := s.repo.GetInvoice(ctx, invoiceID); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteAttachment(ctx, invoiceID, attachmentID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "INVOICE_DETACH", invoiceID, map[string]any{"attachment": attachmentID})
	return nil
}

// Get returns a single invoice with attachments.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// ListByVendor returns a vendor's invoices.
func (s *Service) ListByVendor(ctx context.Context, vendorID int64) ([]Invoice, error) {
	return s.repo.ListByVendor(ctx, vendorID)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "invoice", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func (s *Service) bumpViews(ctx context.Context) {
	if s.views == nil {
		return
	}
	_ = s.views.Bump(ctx)
}
