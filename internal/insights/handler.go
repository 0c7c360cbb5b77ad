package insights

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/brickline-erp/brickline/internal/platform/httpx"
)

// Handler exposes the aggregation views over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers insights routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/vendors/{vendorID}/summary", h.handleSummary)
	r.Get("/vendors/{vendorID}/quotations", h.handleQuotations)
	r.Get("/vendors/{vendorID}/payments", h.handlePayments)
	r.Get("/timeline", h.handleTimeline)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	vendorID, _ := strconv.ParseInt(chi.URLParam(r, "vendorID"), 10, 64)
	summary, err := h.service.VendorSummary(r.Context(), vendorID)
	if err != nil {
		h.fail(w, "vendor summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleQuotations(w http.ResponseWriter, r *http.Request) {
	vendorID, _ := strconv.ParseInt(chi.URLParam(r, "vendorID"), 10, 64)
	tab := QuotationTab(r.URL.Query().Get("tab"))
	if tab == "" {
		tab = TabAll
	}
	orders, err := h.service.Quotations(r.Context(), vendorID, tab)
	if err != nil {
		h.fail(w, "quotations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders, "total": len(orders)})
}

func (h *Handler) handlePayments(w http.ResponseWriter, r *http.Request) {
	vendorID, _ := strconv.ParseInt(chi.URLParam(r, "vendorID"), 10, 64)
	filter := PaymentFilter(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = PaymentAll
	}
	items, err := h.service.Payments(r.Context(), vendorID, filter)
	if err != nil {
		h.fail(w, "payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": items, "total": len(items)})
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.Timeline(r.Context())
	if err != nil {
		h.fail(w, "timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders, "total": len(orders)})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
