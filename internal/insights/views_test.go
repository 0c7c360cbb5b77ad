package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brickline-erp/brickline/internal/invoice"
	"github.com/brickline-erp/brickline/internal/order"
)

func TestVendorPendingCount(t *testing.T) {
	orders := []order.PurchaseOrder{
		{ID: 1, VendorID: 5, Status: order.StatusInNegotiation},
		{ID: 2, VendorID: 5, Status: order.StatusAccepted},
		{ID: 3, VendorID: 6, Status: order.StatusInNegotiation},
	}
	invoices := []invoice.Invoice{
		{ID: 1, VendorID: 5, Status: invoice.StatusPending},
		{ID: 2, VendorID: 5, Status: invoice.StatusPaid},
	}

	// one pending invoice plus one in-negotiation order
	require.Equal(t, 2, VendorPendingCount(5, orders, invoices))

	// deterministic on identical input
	require.Equal(t, VendorPendingCount(5, orders, invoices), VendorPendingCount(5, orders, invoices))
}

func TestVendorPendingCountExcludesMalformedRecords(t *testing.T) {
	orders := []order.PurchaseOrder{
		{ID: 0, VendorID: 5, Status: order.StatusInNegotiation}, // missing id
		{ID: 1, VendorID: 5, Status: ""},                        // missing status
		{ID: 2, VendorID: 5, Status: order.StatusInNegotiation},
	}
	invoices := []invoice.Invoice{
		{ID: 0, VendorID: 5, Status: invoice.StatusPending},
		{ID: 1, VendorID: 5, Status: invoice.StatusPending},
	}
	require.Equal(t, 2, VendorPendingCount(5, orders, invoices))
}

func TestVendorActiveOrderCount(t *testing.T) {
	orders := []order.PurchaseOrder{
		{ID: 1, VendorID: 5, Status: order.StatusSent},
		{ID: 2, VendorID: 5, Status: order.StatusInNegotiation},
		{ID: 3, VendorID: 5, Status: order.StatusCompleted},
		{ID: 4, VendorID: 6, Status: order.StatusSent},
	}
	require.Equal(t, 2, VendorActiveOrderCount(5, orders))
	require.Equal(t, 1, VendorActiveOrderCount(6, orders))
	require.Equal(t, 0, VendorActiveOrderCount(7, orders))
}

func TestQuotationTabs(t *testing.T) {
	orders := []order.PurchaseOrder{
		{ID: 1, Status: order.StatusSent},
		{ID: 2, Status: order.StatusInNegotiation},
		{ID: 3, Status: order.StatusAccepted},
	}

	newTab := QuotationTabs(orders, TabNew)
	require.Len(t, newTab, 1)
	require.Equal(t, int64(1), newTab[0].ID)

	negotiating := QuotationTabs(orders, TabInNegotiation)
	require.Len(t, negotiating, 1)
	require.Equal(t, int64(2), negotiating[0].ID)

	require.Len(t, QuotationTabs(orders, TabAll), 3)
}

func due(t *testing.T, s string) *time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return &ts
}

func TestPaymentTrackerMergesAndSorts(t *testing.T) {
	receivables := []PaymentItem{
		{ID: 1, Reference: "INV-1", Status: "pending", Amount: 1250.5, DueAt: due(t, "2026-09-10")},
	}
	payables := []PaymentItem{
		{ID: 2, Reference: "BILL-7", Status: "overdue", Amount: 400, DueAt: due(t, "2026-08-01")},
		{ID: 3, Reference: "BILL-8", Status: "sent", Amount: 90, DueAt: due(t, "2026-09-20")},
		{ID: 4, Reference: "BILL-9", Status: "viewed", Amount: 10},
	}

	all := PaymentTracker(receivables, payables, PaymentAll)
	require.Len(t, all, 4)
	// most recent due date first, undated entries last
	require.Equal(t, int64(3), all[0].ID)
	require.Equal(t, int64(1), all[1].ID)
	require.Equal(t, int64(2), all[2].ID)
	require.Equal(t, int64(4), all[3].ID)
	require.Equal(t, DirectionReceivable, all[1].Direction)
	require.Equal(t, DirectionPayable, all[0].Direction)
	require.Equal(t, "1,250.50", all[1].Display)

	overdue := PaymentTracker(receivables, payables, PaymentOverdue)
	require.Len(t, overdue, 1)
	require.Equal(t, int64(2), overdue[0].ID)

	pending := PaymentTracker(receivables, payables, PaymentPending)
	require.Len(t, pending, 3)
	for _, item := range pending {
		require.Contains(t, []string{"pending", "sent", "viewed"}, item.Status)
	}
}

func TestPaymentTrackerSkipsMalformedEntries(t *testing.T) {
	payables := []PaymentItem{
		{ID: 0, Status: "pending", Amount: 5},
		{ID: 1, Status: "pending", Amount: 5},
	}
	require.Len(t, PaymentTracker(nil, payables, PaymentAll), 1)
}

func TestOrderUpdatesTimeline(t *testing.T) {
	t1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

	orders := []order.PurchaseOrder{
		{ID: 1, Status: order.StatusCompleted, CreatedAt: t1},
		{ID: 2, Status: order.StatusSent, CreatedAt: t1, UpdatedAt: &t3},
		{ID: 3, Status: order.StatusRejected, CreatedAt: t2},
	}

	timeline := OrderUpdatesTimeline(orders)
	require.Len(t, timeline, 3)
	require.Equal(t, int64(2), timeline[0].ID) // updatedAt wins over createdAt
	require.Equal(t, int64(3), timeline[1].ID)
	require.Equal(t, int64(1), timeline[2].ID)

	// input slice left untouched
	require.Equal(t, int64(1), orders[0].ID)
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "1,500,000.00", FormatMoney(1500000))
	require.Equal(t, "0.00", FormatMoney(0))
}
