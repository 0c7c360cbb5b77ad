package insights

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brickline-erp/brickline/internal/invoice"
	"github.com/brickline-erp/brickline/internal/order"
)

// Source implements DataSource over the order and invoice repositories plus
// the payments read model.
type Source struct {
	pool     *pgxpool.Pool
	orders   *order.Repository
	invoices *invoice.Repository
}

// NewSource constructs a Source.
func NewSource(pool *pgxpool.Pool, orders *order.Repository, invoices *invoice.Repository) *Source {
	return &Source{pool: pool, orders: orders, invoices: invoices}
}

// AllOrders loads every purchase order.
func (s *Source) AllOrders(ctx context.Context) ([]order.PurchaseOrder, error) {
	return s.orders.ListOrders(ctx, order.ListFilters{})
}

// VendorOrders loads a vendor's purchase orders.
func (s *Source) VendorOrders(ctx context.Context, vendorID int64) ([]order.PurchaseOrder, error) {
	return s.orders.ListOrders(ctx, order.ListFilters{VendorID: vendorID})
}

// VendorInvoices loads a vendor's invoices.
func (s *Source) VendorInvoices(ctx context.Context, vendorID int64) ([]invoice.Invoice, error) {
	return s.invoices.ListByVendor(ctx, vendorID)
}

// Receivables loads money owed to the vendor.
func (s *Source) Receivables(ctx context.Context, vendorID int64) ([]PaymentItem, error) {
	return s.payments(ctx, vendorID, DirectionReceivable)
}

// Payables loads money the vendor owes.
func (s *Source) Payables(ctx context.Context, vendorID int64) ([]PaymentItem, error) {
	return s.payments(ctx, vendorID, DirectionPayable)
}

func (s *Source) payments(ctx context.Context, vendorID int64, direction PaymentDirection) ([]PaymentItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, reference, status, amount, due_at
FROM payments WHERE vendor_id = $1 AND direction = $2`, vendorID, string(direction))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentItem
	for rows.Next() {
		item := PaymentItem{Direction: direction}
		if err := rows.Scan(&item.ID, &item.Reference, &item.Status, &item.Amount, &item.DueAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
