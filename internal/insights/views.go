package insights

import (
	"sort"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/brickline-erp/brickline/internal/invoice"
	"github.com/brickline-erp/brickline/internal/order"
)

// Views in this package are deterministic pure functions over full
// collections. They recompute from scratch on every refresh; there is no
// incremental state to drift.

// sanitizeOrders drops records that would poison a count: no id or no
// status. Every view runs its input through this guard first.
func sanitizeOrders(orders []order.PurchaseOrder) []order.PurchaseOrder {
	out := orders[:0:0]
	for _, po := range orders {
		if po.ID == 0 || po.Status == "" {
			continue
		}
		out = append(out, po)
	}
	return out
}

func sanitizeInvoices(invoices []invoice.Invoice) []invoice.Invoice {
	out := invoices[:0:0]
	for _, inv := range invoices {
		if inv.ID == 0 || inv.Status == "" {
			continue
		}
		out = append(out, inv)
	}
	return out
}

// VendorPendingCount is the vendor's action badge: pending invoices plus
// orders sitting in negotiation.
func VendorPendingCount(vendorID int64, orders []order.PurchaseOrder, invoices []invoice.Invoice) int {
	count := 0
	for _, inv := range sanitizeInvoices(invoices) {
		if inv.VendorID == vendorID && inv.Status == invoice.StatusPending {
			count++
		}
	}
	for _, po := range sanitizeOrders(orders) {
		if po.VendorID == vendorID && po.Status == order.StatusInNegotiation {
			count++
		}
	}
	return count
}

// VendorActiveOrderCount counts a vendor's orders that still need a response.
func VendorActiveOrderCount(vendorID int64, orders []order.PurchaseOrder) int {
	count := 0
	for _, po := range sanitizeOrders(orders) {
		if po.VendorID != vendorID {
			continue
		}
		if po.Status == order.StatusSent || po.Status == order.StatusInNegotiation {
			count++
		}
	}
	return count
}

// QuotationTab selects a quotation listing slice.
type QuotationTab string

const (
	TabNew           QuotationTab = "new"
	TabInNegotiation QuotationTab = "in_negotiation"
	TabAll           QuotationTab = "all"
)

// QuotationTabs filters orders for the quotation screen tabs. The "new" tab
// is the stored sent status surfacing under its display bucket.
func QuotationTabs(orders []order.PurchaseOrder, tab QuotationTab) []order.PurchaseOrder {
	clean := sanitizeOrders(orders)
	switch tab {
	case TabNew:
		return filterOrders(clean, order.StatusSent)
	case TabInNegotiation:
		return filterOrders(clean, order.StatusInNegotiation)
	default:
		return clean
	}
}

func filterOrders(orders []order.PurchaseOrder, status order.Status) []order.PurchaseOrder {
	out := orders[:0:0]
	for _, po := range orders {
		if po.Status == status {
			out = append(out, po)
		}
	}
	return out
}

// PaymentDirection tags a tracker entry by money flow.
type PaymentDirection string

const (
	DirectionReceivable PaymentDirection = "receivable"
	DirectionPayable    PaymentDirection = "payable"
)

// PaymentItem is a single payment tracker row.
type PaymentItem struct {
	ID        int64            `json:"id"`
	Direction PaymentDirection `json:"direction"`
	Reference string           `json:"reference"`
	Status    string           `json:"status"`
	Amount    float64          `json:"amount"`
	Display   string           `json:"displayAmount"`
	DueAt     *time.Time       `json:"dueDate,omitempty"`
}

// PaymentFilter selects a payment tracker slice.
type PaymentFilter string

const (
	PaymentOverdue PaymentFilter = "overdue"
	// PaymentPending shows as "Due Soon" in the UI and covers every
	// not-yet-settled upstream status.
	PaymentPending PaymentFilter = "pending"
	PaymentAll     PaymentFilter = "all"
)

var pendingPaymentStatuses = map[string]struct{}{
	"pending": {}, "sent": {}, "viewed": {},
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount with thousands grouping for tracker rows.
func FormatMoney(amount float64) string {
	return moneyPrinter.Sprintf("%.2f", amount)
}

// PaymentTracker merges receivables and payables into one sequence, applies
// the filter and sorts by most recent due date first. Entries without a due
// date sink to the end.
func PaymentTracker(receivables, payables []PaymentItem, filter PaymentFilter) []PaymentItem {
	merged := make([]PaymentItem, 0, len(receivables)+len(payables))
	for _, item := range receivables {
		item.Direction = DirectionReceivable
		merged = append(merged, item)
	}
	for _, item := range payables {
		item.Direction = DirectionPayable
		merged = append(merged, item)
	}

	out := merged[:0:0]
	for _, item := range merged {
		if item.ID == 0 {
			continue
		}
		switch filter {
		case PaymentOverdue:
			if item.Status != "overdue" {
				continue
			}
		case PaymentPending:
			if _, ok := pendingPaymentStatuses[item.Status]; !ok {
				continue
			}
		}
		item.Display = FormatMoney(item.Amount)
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DueAt, out[j].DueAt
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return di.After(*dj)
	})
	return out
}

// OrderUpdatesTimeline orders every order by recency, newest first,
// regardless of status. updatedAt drives the ordering with createdAt as the
// fallback.
func OrderUpdatesTimeline(orders []order.PurchaseOrder) []order.PurchaseOrder {
	out := append([]order.PurchaseOrder(nil), sanitizeOrders(orders)...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecencyTime().After(out[j].RecencyTime())
	})
	return out
}
