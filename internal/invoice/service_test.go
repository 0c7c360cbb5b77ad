package invoice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brickline-erp/brickline/internal/order"
)

type memoryInvoiceRepo struct {
	nextID   int64
	invoices map[int64]*Invoice
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{nextID: 1, invoices: map[int64]*Invoice{}}
}

func (m *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryInvoiceTx{repo: m})
}

func (m *memoryInvoiceRepo) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return *inv, nil
}

func (m *memoryInvoiceRepo) ListByVendor(_ context.Context, vendorID int64) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.VendorID == vendorID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *memoryInvoiceRepo) ListByOrder(_ context.Context, orderID int64) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.OrderID != nil && *inv.OrderID == orderID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

type memoryInvoiceTx struct {
	repo *memoryInvoiceRepo
}

func (tx *memoryInvoiceTx) CreateInvoice(_ context.Context, inv Invoice) (int64, error) {
	id := tx.repo.nextID
	tx.repo.nextID++
	inv.ID = id
	tx.repo.invoices[id] = &inv
	return id, nil
}

func (tx *memoryInvoiceTx) UpdateStatus(_ context.Context, id int64, status Status) error {
	inv, ok := tx.repo.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Status = status
	return nil
}

func (tx *memoryInvoiceTx) InsertAttachment(_ context.Context, invoiceID int64, att Attachment) error {
	inv, ok := tx.repo.invoices[invoiceID]
	if !ok {
		return ErrNotFound
	}
	inv.Attachments = append(inv.Attachments, att)
	return nil
}

func (tx *memoryInvoiceTx) DeleteAttachment(_ context.Context, invoiceID int64, attachmentID string) error {
	inv, ok := tx.repo.invoices[invoiceID]
	if !ok {
		return ErrNotFound
	}
	kept := inv.Attachments[:0]
	for _, att := range inv.Attachments {
		if att.ID != attachmentID {
			kept = append(kept, att)
		}
	}
	inv.Attachments = kept
	return nil
}

type stubOrderPort struct {
	orders map[int64]order.PurchaseOrder
}

func (s *stubOrderPort) GetOrder(_ context.Context, id int64) (order.PurchaseOrder, error) {
	po, ok := s.orders[id]
	if !ok {
		return order.PurchaseOrder{}, order.ErrNotFound
	}
	return po, nil
}

func newInvoiceService(repo *memoryInvoiceRepo, orders *stubOrderPort) *Service {
	return NewService(repo, orders, nil, nil)
}

func TestCreateStandaloneInvoice(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newInvoiceService(repo, &stubOrderPort{orders: map[int64]order.PurchaseOrder{}})

	inv, err := svc.Create(context.Background(), CreateInput{VendorID: 3, ProjectID: 9, Amount: 250})
	require.NoError(t, err)
	require.Equal(t, StatusPending, inv.Status)
	require.NotEmpty(t, inv.Number)
	require.NotNil(t, inv.TotalAmount)
	require.Equal(t, 250.0, *inv.TotalAmount)
}

func TestCreateOrderBackedInvoicePassesGate(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	orders := &stubOrderPort{orders: map[int64]order.PurchaseOrder{
		7: {ID: 7, Status: order.StatusAccepted},
	}}
	svc := newInvoiceService(repo, orders)

	orderID := int64(7)
	inv, err := svc.Create(context.Background(), CreateInput{VendorID: 3, ProjectID: 9, OrderID: &orderID, Amount: 1200})
	require.NoError(t, err)
	require.NotNil(t, inv.OrderID)

	// Second invoice against the same order is rejected.
	_, err = svc.Create(context.Background(), CreateInput{VendorID: 3, ProjectID: 9, OrderID: &orderID, Amount: 1200})
	require.ErrorIs(t, err, ErrDuplicateForOrder)
}

func TestCreateRejectsIneligibleOrder(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	orders := &stubOrderPort{orders: map[int64]order.PurchaseOrder{
		7: {ID: 7, Status: order.StatusInNegotiation},
	}}
	svc := newInvoiceService(repo, orders)

	orderID := int64(7)
	_, err := svc.Create(context.Background(), CreateInput{VendorID: 3, ProjectID: 9, OrderID: &orderID, Amount: 800})
	require.ErrorIs(t, err, ErrOrderNotEligible)
}

func TestCanCreateForOrder(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	orders := &stubOrderPort{orders: map[int64]order.PurchaseOrder{
		7: {ID: 7, Status: order.StatusCompleted},
	}}
	svc := newInvoiceService(repo, orders)

	ok, err := svc.CanCreateForOrder(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, ok)

	orderID := int64(7)
	_, err = svc.Create(context.Background(), CreateInput{VendorID: 1, ProjectID: 1, OrderID: &orderID, Amount: 50})
	require.NoError(t, err)

	ok, err = svc.CanCreateForOrder(context.Background(), 7)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.CanCreateForOrder(context.Background(), 404)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestInvoiceStatusWorkflow(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newInvoiceService(repo, &stubOrderPort{orders: map[int64]order.PurchaseOrder{}})

	inv, err := svc.Create(context.Background(), CreateInput{VendorID: 1, ProjectID: 1, Amount: 100})
	require.NoError(t, err)

	// Cannot pay before approval.
	require.ErrorIs(t, svc.MarkPaid(context.Background(), inv.ID), ErrInvalidState)

	require.NoError(t, svc.Approve(context.Background(), inv.ID))
	got, err := svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, got.Status)

	// Approve is not idempotent: the invoice has moved on.
	require.ErrorIs(t, svc.Approve(context.Background(), inv.ID), ErrInvalidState)

	require.NoError(t, svc.MarkPaid(context.Background(), inv.ID))
	got, err = svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, got.Status)
}

func TestAttachmentsDeletableAtAnyStatus(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newInvoiceService(repo, &stubOrderPort{orders: map[int64]order.PurchaseOrder{}})

	inv, err := svc.Create(context.Background(), CreateInput{VendorID: 1, ProjectID: 1, Amount: 100})
	require.NoError(t, err)

	att, err := svc.AddAttachment(context.Background(), inv.ID, AttachmentInput{Filename: "delivery-note.pdf", URL: "https://files.example.com/delivery-note.pdf"})
	require.NoError(t, err)
	require.NotEmpty(t, att.ID)

	require.NoError(t, svc.Approve(context.Background(), inv.ID))
	require.NoError(t, svc.MarkPaid(context.Background(), inv.ID))

	// Paid invoices still allow attachment removal.
	require.NoError(t, svc.DeleteAttachment(context.Background(), inv.ID, att.ID))
	got, err := svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Empty(t, got.Attachments)
}

func TestAttachmentValidation(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newInvoiceService(repo, &stubOrderPort{orders: map[int64]order.PurchaseOrder{}})

	inv, err := svc.Create(context.Background(), CreateInput{VendorID: 1, ProjectID: 1, Amount: 100})
	require.NoError(t, err)

	_, err = svc.AddAttachment(context.Background(), inv.ID, AttachmentInput{Filename: "", URL: "https://files.example.com/x"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddAttachment(context.Background(), 99, AttachmentInput{Filename: "a.pdf", URL: "https://files.example.com/a.pdf"})
	require.ErrorIs(t, err, ErrNotFound)
}
