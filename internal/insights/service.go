package insights

import (
	"context"
	"fmt"

	"github.com/brickline-erp/brickline/internal/invoice"
	"github.com/brickline-erp/brickline/internal/order"
)

// DataSource loads the collections the views compute over.
type DataSource interface {
	AllOrders(ctx context.Context) ([]order.PurchaseOrder, error)
	VendorOrders(ctx context.Context, vendorID int64) ([]order.PurchaseOrder, error)
	VendorInvoices(ctx context.Context, vendorID int64) ([]invoice.Invoice, error)
	Receivables(ctx context.Context, vendorID int64) ([]PaymentItem, error)
	Payables(ctx context.Context, vendorID int64) ([]PaymentItem, error)
}

// Service computes cached aggregation views.
type Service struct {
	source DataSource
	cache  *Cache
}

// NewService constructs an insights service.
func NewService(source DataSource, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

// VendorSummary bundles the dashboard badge counts.
type VendorSummary struct {
	VendorID     int64 `json:"vendor"`
	PendingCount int   `json:"pendingCount"`
	ActiveOrders int   `json:"activeOrders"`
}

// VendorSummary returns the pending-action and active-order counts for a
// vendor's dashboard.
func (s *Service) VendorSummary(ctx context.Context, vendorID int64) (VendorSummary, error) {
	key, err := s.cache.BuildKey(ctx, "insights", "vendor_summary", formatID(vendorID))
	if err != nil {
		return VendorSummary{}, err
	}
	var summary VendorSummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		orders, err := s.source.VendorOrders(ctx, vendorID)
		if err != nil {
			return nil, err
		}
		invoices, err := s.source.VendorInvoices(ctx, vendorID)
		if err != nil {
			return nil, err
		}
		return VendorSummary{
			VendorID:     vendorID,
			PendingCount: VendorPendingCount(vendorID, orders, invoices),
			ActiveOrders: VendorActiveOrderCount(vendorID, orders),
		}, nil
	})
	return summary, err
}

// Quotations returns the orders under a quotation tab.
func (s *Service) Quotations(ctx context.Context, vendorID int64, tab QuotationTab) ([]order.PurchaseOrder, error) {
	key, err := s.cache.BuildKey(ctx, "insights", "quotations", formatID(vendorID), string(tab))
	if err != nil {
		return nil, err
	}
	var orders []order.PurchaseOrder
	err = s.cache.FetchJSON(ctx, key, &orders, func(ctx context.Context) (interface{}, error) {
		all, err := s.source.VendorOrders(ctx, vendorID)
		if err != nil {
			return nil, err
		}
		return QuotationTabs(all, tab), nil
	})
	return orders, err
}

// Payments returns the merged payment tracker under a filter.
func (s *Service) Payments(ctx context.Context, vendorID int64, filter PaymentFilter) ([]PaymentItem, error) {
	key, err := s.cache.BuildKey(ctx, "insights", "payments", formatID(vendorID), string(filter))
	if err != nil {
		return nil, err
	}
	var items []PaymentItem
	err = s.cache.FetchJSON(ctx, key, &items, func(ctx context.Context) (interface{}, error) {
		receivables, err := s.source.Receivables(ctx, vendorID)
		if err != nil {
			return nil, err
		}
		payables, err := s.source.Payables(ctx, vendorID)
		if err != nil {
			return nil, err
		}
		return PaymentTracker(receivables, payables, filter), nil
	})
	return items, err
}

// Timeline returns all orders sorted by recency, newest first.
func (s *Service) Timeline(ctx context.Context) ([]order.PurchaseOrder, error) {
	key, err := s.cache.BuildKey(ctx, "insights", "timeline")
	if err != nil {
		return nil, err
	}
	var orders []order.PurchaseOrder
	err = s.cache.FetchJSON(ctx, key, &orders, func(ctx context.Context) (interface{}, error) {
		all, err := s.source.AllOrders(ctx)
		if err != nil {
			return nil, err
		}
		return OrderUpdatesTimeline(all), nil
	})
	return orders, err
}

// Warm precomputes a vendor's views. The background warmup job calls this.
func (s *Service) Warm(ctx context.Context, vendorID int64) error {
	if _, err := s.VendorSummary(ctx, vendorID); err != nil {
		return err
	}
	for _, tab := range []QuotationTab{TabNew, TabInNegotiation, TabAll} {
		if _, err := s.Quotations(ctx, vendorID, tab); err != nil {
			return err
		}
	}
	for _, filter := range []PaymentFilter{PaymentOverdue, PaymentPending, PaymentAll} {
		if _, err := s.Payments(ctx, vendorID, filter); err != nil {
			return err
		}
	}
	return nil
}

func formatID(id int64) string {
	return fmt.Sprintf("%d", id)
}
