package invoice

import (
	"github.com/brickline-erp/brickline/internal/order"
)

// CanCreateInvoice reports whether a vendor invoice may be raised against the
// order: the order must be in an invoice-eligible status and not already be
// referenced by an existing invoice.
func CanCreateInvoice(po order.PurchaseOrder, existing []Invoice) bool {
	if !po.Status.InvoiceEligible() {
		return false
	}
	for _, inv := range existing {
		if inv.OrderID != nil && *inv.OrderID == po.ID {
			return false
		}
	}
	return true
}

// AmountFor resolves the invoice amount across the two historical field
// names: totalAmount when present, amount otherwise, zero when neither is set.
func AmountFor(inv Invoice) float64 {
	if inv.TotalAmount != nil {
		return *inv.TotalAmount
	}
	if inv.Amount != nil {
		return *inv.Amount
	}
	return 0
}
