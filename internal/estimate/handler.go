package estimate

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/impexflow/backend-impex/internal/common"
)

// Handler exposes the estimate endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	perPage  int
	maxPage  int
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service        *Service
	Validate       *validator.Validate
	DefaultPerPage int
	MaxPerPage     int
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	perPage := cfg.DefaultPerPage
	if perPage < 1 {
		perPage = 20
	}
	maxPage := cfg.MaxPerPage
	if maxPage < 1 {
		maxPage = 100
	}
	return &Handler{service: cfg.Service, validate: cfg.Validate, perPage: perPage, maxPage: maxPage}
}

// Routes mounts the estimate endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/preview", h.Preview)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// Preview handles POST /api/v1/estimates/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, h.validate, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	totals, err := h.service.Preview(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, totals)
}

// Create handles POST /api/v1/estimates.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, h.validate, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	est, err := h.service.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, est)
}

// Get handles GET /api/v1/estimates/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	est, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, est)
}

// List handles GET /api/v1/estimates with optional supplier filtering.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.perPage, h.maxPage)
	var supplierID *uuid.UUID
	if raw := strings.TrimSpace(r.URL.Query().Get("supplier_id")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "supplier_id must be a valid uuid", nil)
			return
		}
		supplierID = &parsed
	}
	items, total, err := h.service.List(r.Context(), supplierID, perPage, common.Offset(page, perPage))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONPage(w, http.StatusOK, items, common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}

// Update handles PUT /api/v1/estimates/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, h.validate, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	est, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, est)
}

// Delete handles DELETE /api/v1/estimates/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "estimate not found", nil)
		return
	}
	common.WriteError(w, err)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id must be a valid uuid", nil)
		return uuid.Nil, false
	}
	return id, true
}
