package materials

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brickline-erp/brickline/internal/platform/httpx"
	"github.com/brickline-erp/brickline/internal/shared"
)

// Handler manages material request endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers material request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/approve", h.handleApprove)
	r.Post("/{id}/reject", h.handleReject)
}

type createRequestLine struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

type createRequestPayload struct {
	ProjectID  int64               `json:"project" validate:"required"`
	Priority   string              `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Materials  []createRequestLine `json:"materials" validate:"required,min=1,dive"`
	RequiredBy *time.Time          `json:"requiredBy"`
	Note       string              `json:"note"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequestPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines := make([]Line, 0, len(req.Materials))
	for _, m := range req.Materials {
		lines = append(lines, Line{Name: m.Name, Quantity: m.Quantity, Unit: m.Unit, Category: m.Category})
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	created, err := h.service.Create(r.Context(), CreateInput{
		ProjectID:   req.ProjectID,
		RequestedBy: identity.AccountID,
		Priority:    Priority(req.Priority),
		Lines:       lines,
		RequiredBy:  req.RequiredBy,
		Note:        req.Note,
	})
	if err != nil {
		h.respondError(w, "create material request", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID, _ := strconv.ParseInt(q.Get("project_id"), 10, 64)
	requests, err := h.service.List(r.Context(), ListFilter{
		ProjectID: projectID,
		Status:    RequestStatus(q.Get("status")),
		Priority:  Priority(q.Get("priority")),
	})
	if err != nil {
		h.respondError(w, "list material requests", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": requests, "total": len(requests)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get material request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Approve(r.Context(), id); err != nil {
		h.respondError(w, "approve material request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusApproved)})
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Reject(r.Context(), id); err != nil {
		h.respondError(w, "reject material request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusRejected)})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.ProblemCode(w, http.StatusNotFound, "unknown_material_request", "Request Not Found", "no material request with that id")
	case errors.Is(err, ErrAlreadyDecided):
		httpx.ProblemCode(w, http.StatusConflict, "request_already_decided", "Already Decided", "the request already left pending")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
