package invoice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brickline-erp/brickline/internal/order"
)

func ptr(v float64) *float64 { return &v }

func TestAmountFor(t *testing.T) {
	require.Equal(t, 1500.0, AmountFor(Invoice{TotalAmount: ptr(1500)}))
	require.Equal(t, 900.0, AmountFor(Invoice{Amount: ptr(900)}))
	// totalAmount wins when both fields are set.
	require.Equal(t, 1500.0, AmountFor(Invoice{TotalAmount: ptr(1500), Amount: ptr(900)}))
	require.Equal(t, 0.0, AmountFor(Invoice{}))
}

func TestCanCreateInvoiceRequiresEligibleStatus(t *testing.T) {
	eligible := []order.Status{
		order.StatusAccepted,
		order.StatusInProgress,
		order.StatusShipped,
		order.StatusDelivered,
		order.StatusCompleted,
	}
	for _, st := range eligible {
		require.True(t, CanCreateInvoice(order.PurchaseOrder{ID: 1, Status: st}, nil), "status %s", st)
	}

	ineligible := []order.Status{
		order.StatusDraft,
		order.StatusSent,
		order.StatusInNegotiation,
		order.StatusRejected,
	}
	for _, st := range ineligible {
		require.False(t, CanCreateInvoice(order.PurchaseOrder{ID: 1, Status: st}, nil), "status %s", st)
	}
}

func TestCanCreateInvoiceBlocksDoubleInvoicing(t *testing.T) {
	po := order.PurchaseOrder{ID: 7, Status: order.StatusAccepted}

	orderID := int64(7)
	otherID := int64(8)
	existing := []Invoice{
		{ID: 1, OrderID: &otherID},
		{ID: 2, OrderID: nil}, // standalone invoice, does not count
	}
	require.True(t, CanCreateInvoice(po, existing))

	existing = append(existing, Invoice{ID: 3, OrderID: &orderID})
	require.False(t, CanCreateInvoice(po, existing))
}

func TestDisplayLabel(t *testing.T) {
	require.Equal(t, "Negotiation", DisplayLabel(StatusPending))
	require.Equal(t, "Under Review", DisplayLabel(StatusApproved))
	require.Equal(t, "Paid", DisplayLabel(StatusPaid))
	require.Equal(t, "voided", DisplayLabel(Status("voided")))
}
