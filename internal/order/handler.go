package order

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brickline-erp/brickline/internal/platform/httpx"
	"github.com/brickline-erp/brickline/internal/shared"
)

// Handler manages purchase order endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/dispatch", h.handleDispatch)
	r.Post("/{id}/events", h.handleAppendEvent)
	r.Post("/{id}/accept", h.handleAccept)
	r.Post("/{id}/reject", h.handleReject)
	r.Post("/{id}/begin-work", h.transitionHandler(EventBeginWork))
	r.Post("/{id}/ship", h.transitionHandler(EventShip))
	r.Post("/{id}/deliver", h.transitionHandler(EventDeliver))
	r.Post("/{id}/close", h.transitionHandler(EventClose))
}

type createOrderRequest struct {
	Number      string  `json:"purchaseOrderNumber"`
	ProjectID   int64   `json:"project" validate:"required"`
	VendorID    int64   `json:"vendor" validate:"required"`
	TotalAmount float64 `json:"totalAmount" validate:"gte=0"`
	Items       []struct {
		MaterialName string  `json:"materialName" validate:"required"`
		Quantity     float64 `json:"quantity" validate:"gt=0"`
		Unit         string  `json:"unit"`
	} `json:"items" validate:"required,min=1,dive"`
}

type negotiationEventRequest struct {
	Kind    string   `json:"kind" validate:"required,oneof=offer counter_offer accept reject message"`
	Amount  *float64 `json:"amount"`
	Message string   `json:"message"`
}

// orderResponse decorates the stored order with its display form and the
// amount currently on the table, so screens stop re-deriving them.
type orderResponse struct {
	PurchaseOrder
	Display       DisplayStatus `json:"display"`
	CurrentAsking float64       `json:"currentAskingAmount"`
}

func (h *Handler) respond(w http.ResponseWriter, status int, po PurchaseOrder, ledger []NegotiationEvent) {
	httpx.JSON(w, status, orderResponse{
		PurchaseOrder: po,
		Display:       Display(po.Status),
		CurrentAsking: CurrentAskingAmount(po, ledger),
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, ActorOwner); !ok {
		return
	}
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, Item{MaterialName: it.MaterialName, Quantity: it.Quantity, Unit: it.Unit})
	}
	po, err := h.service.CreateOrder(r.Context(), CreateOrderInput{
		Number:      req.Number,
		ProjectID:   req.ProjectID,
		VendorID:    req.VendorID,
		TotalAmount: req.TotalAmount,
		Items:       items,
	})
	if err != nil {
		h.respondError(w, r, "create order", err)
		return
	}
	h.respond(w, http.StatusCreated, po, nil)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	vendorID, _ := strconv.ParseInt(r.URL.Query().Get("vendor_id"), 10, 64)
	projectID, _ := strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
	filters := ListFilters{
		VendorID:  vendorID,
		ProjectID: projectID,
		Bucket:    r.URL.Query().Get("tab"),
		Search:    r.URL.Query().Get("search"),
	}
	if id, ok := shared.IdentityFromContext(r.Context()); ok && id.Role == string(ActorVendor) {
		filters.VendorID = id.VendorID
	}
	orders, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, r, "list orders", err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := shared.NewPagination(page, perPage, len(orders))
	start := (pagination.Page - 1) * pagination.PerPage
	if start > len(orders) {
		start = len(orders)
	}
	end := start + pagination.PerPage
	if end > len(orders) {
		end = len(orders)
	}

	window := orders[start:end]
	asking, err := h.service.AskingAmounts(r.Context(), window)
	if err != nil {
		h.respondError(w, r, "list asking amounts", err)
		return
	}
	out := make([]orderResponse, 0, len(window))
	for _, po := range window {
		out = append(out, orderResponse{PurchaseOrder: po, Display: Display(po.Status), CurrentAsking: asking[po.ID]})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": out, "pagination": pagination})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	po, ledger, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"order": orderResponse{
			PurchaseOrder: po,
			Display:       Display(po.Status),
			CurrentAsking: CurrentAskingAmount(po, ledger),
		},
		"negotiation": ledger,
	})
}

func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	ident, ok := requireRole(w, r, ActorOwner)
	if !ok {
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	po, err := h.service.Dispatch(r.Context(), id, ident.AccountID)
	if err != nil {
		h.respondError(w, r, "dispatch order", err)
		return
	}
	h.respond(w, http.StatusOK, po, nil)
}

func (h *Handler) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req negotiationEventRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ev, err := h.service.AppendNegotiationEvent(r.Context(), id, actor, EventKind(req.Kind), req.Amount, req.Message)
	if err != nil {
		h.respondError(w, r, "append negotiation event", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ev)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	po, err := h.service.Accept(r.Context(), id, actor)
	if err != nil {
		h.respondError(w, r, "accept order", err)
		return
	}
	h.respond(w, http.StatusOK, po, nil)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	po, err := h.service.Reject(r.Context(), id, actor)
	if err != nil {
		h.respondError(w, r, "reject order", err)
		return
	}
	h.respond(w, http.StatusOK, po, nil)
}

func (h *Handler) transitionHandler(event Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}
		ident, _ := shared.IdentityFromContext(r.Context())
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		po, err := h.service.Transition(r.Context(), id, event, actor, ident.AccountID)
		if err != nil {
			h.respondError(w, r, "transition order", err)
			return
		}
		h.respond(w, http.StatusOK, po, nil)
	}
}

// respondError maps each domain failure to its own problem code so clients
// can branch on Code instead of parsing titles.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.ProblemCode(w, http.StatusNotFound, "unknown_order", "Order Not Found", "no purchase order with that id")
	case errors.Is(err, ErrInvalidTransition):
		httpx.ProblemCode(w, http.StatusConflict, "invalid_transition", "Invalid Transition", "this action is not available in the order's current status")
	case errors.Is(err, ErrSelfAcceptance):
		httpx.ProblemCode(w, http.StatusConflict, "self_acceptance", "Awaiting Other Party", "you cannot accept your own outstanding offer")
	case errors.Is(err, ErrStaleNegotiation):
		httpx.ProblemCode(w, http.StatusConflict, "stale_negotiation", "Negotiation Changed", "the negotiation moved on; refresh and resubmit")
	case errors.Is(err, ErrInvalidAmount):
		httpx.ProblemCode(w, http.StatusBadRequest, "invalid_amount", "Invalid Amount", "amount must be a non-negative number")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.ProblemCode(w, http.StatusConflict, "duplicate_request", "Already Processed", "this request was already processed")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func actorFrom(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return "", false
	}
	switch id.Role {
	case string(ActorOwner):
		return ActorOwner, true
	case string(ActorVendor):
		return ActorVendor, true
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "unknown actor role")
	return "", false
}

func requireRole(w http.ResponseWriter, r *http.Request, want Actor) (shared.Identity, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return shared.Identity{}, false
	}
	if id.Role != string(want) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "action reserved for "+string(want))
		return shared.Identity{}, false
	}
	return id, true
}
