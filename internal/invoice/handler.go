package invoice

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brickline-erp/brickline/internal/order"
	"github.com/brickline-erp/brickline/internal/platform/httpx"
)

// Handler manages vendor invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/approve", h.handleApprove)
	r.Post("/{id}/pay", h.handleMarkPaid)
	r.Post("/{id}/attachments", h.handleAddAttachment)
	r.Delete("/{id}/attachments/{attachmentID}", h.handleDeleteAttachment)
	r.Get("/eligibility/{orderID}", h.handleEligibility)
}

type createInvoiceRequest struct {
	Number    string     `json:"invoiceNumber"`
	VendorID  int64      `json:"vendor" validate:"required"`
	ProjectID int64      `json:"project" validate:"required"`
	OrderID   *int64     `json:"purchaseOrder"`
	Amount    float64    `json:"totalAmount" validate:"gte=0"`
	DueAt     *time.Time `json:"dueDate"`
}

type attachmentRequest struct {
	Filename string `json:"filename" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size" validate:"gte=0"`
}

// invoiceResponse decorates the stored invoice with its display label and the
// resolved amount so screens stop chaining field fallbacks themselves.
type invoiceResponse struct {
	Invoice
	DisplayStatus  string  `json:"displayStatus"`
	ResolvedAmount float64 `json:"resolvedAmount"`
}

func toResponse(inv Invoice) invoiceResponse {
	return invoiceResponse{Invoice: inv, DisplayStatus: DisplayLabel(inv.Status), ResolvedAmount: AmountFor(inv)}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.Create(r.Context(), CreateInput{
		Number:    req.Number,
		VendorID:  req.VendorID,
		ProjectID: req.ProjectID,
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		DueAt:     req.DueAt,
	})
	if err != nil {
		h.respondError(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(inv))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	vendorID, _ := strconv.ParseInt(r.URL.Query().Get("vendor_id"), 10, 64)
	invoices, err := h.service.ListByVendor(r.Context(), vendorID)
	if err != nil {
		h.respondError(w, "list invoices", err)
		return
	}
	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": out, "total": len(out)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Approve(r.Context(), id); err != nil {
		h.respondError(w, "approve invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusApproved)})
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.MarkPaid(r.Context(), id); err != nil {
		h.respondError(w, "mark invoice paid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusPaid)})
}

func (h *Handler) handleAddAttachment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req attachmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	att, err := h.service.AddAttachment(r.Context(), id, AttachmentInput{
		Filename: req.Filename,
		URL:      req.URL,
		MimeType: req.MimeType,
		Size:     req.Size,
	})
	if err != nil {
		h.respondError(w, "add attachment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, att)
}

func (h *Handler) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	attachmentID := chi.URLParam(r, "attachmentID")
	if err := h.service.DeleteAttachment(r.Context(), id, attachmentID); err != nil {
		h.respondError(w, "delete attachment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEligibility(w http.ResponseWriter, r *http.Request) {
	orderID, _ := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	ok, err := h.service.CanCreateForOrder(r.Context(), orderID)
	if err != nil {
		h.respondError(w, "invoice eligibility", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"canCreateInvoice": ok})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.ProblemCode(w, http.StatusNotFound, "unknown_invoice", "Invoice Not Found", "no invoice with that id")
	case errors.Is(err, order.ErrNotFound):
		httpx.ProblemCode(w, http.StatusNotFound, "unknown_order", "Order Not Found", "no purchase order with that id")
	case errors.Is(err, ErrOrderNotEligible):
		httpx.ProblemCode(w, http.StatusConflict, "order_not_eligible", "Order Not Eligible", "the order has not been accepted yet")
	case errors.Is(err, ErrDuplicateForOrder):
		httpx.ProblemCode(w, http.StatusConflict, "order_already_invoiced", "Already Invoiced", "an invoice already references this order")
	case errors.Is(err, ErrInvalidState):
		httpx.ProblemCode(w, http.StatusConflict, "invalid_invoice_state", "Invalid State", "this action is not available in the invoice's current status")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
