package shipment

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/impexflow/backend-impex/internal/common"
)

// Handler exposes shipment tracking endpoints.
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

// Routes mounts the shipment endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Book)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/events", h.History)
	r.Post("/{id}/events", h.AppendEvent)
	return r
}

// Book handles POST /api/v1/shipments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := common.DecodeJSON(r, h.validate, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	shp, err := h.service.Book(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, shp)
}

// Get handles GET /api/v1/shipments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	shp, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, shp)
}

// List handles GET /api/v1/shipments with optional status filtering.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.perPage, h.maxPage)
	status := Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	items, total, err := h.service.List(r.Context(), status, perPage, common.Offset(page, perPage))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONPage(w, http.StatusOK, items, common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}

// History handles GET /api/v1/shipments/{id}/events.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	events, err := h.service.History(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if events == nil {
		events = []Event{}
	}
	common.JSONData(w, http.StatusOK, events)
}

// AppendEvent handles POST /api/v1/shipments/{id}/events.
func (h *Handler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in EventInput
	if err := common.DecodeJSON(r, h.validate, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	in.Status = Status(strings.ToUpper(strings.TrimSpace(string(in.Status))))
	event, shp, err := h.service.AppendEvent(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, map[string]any{"event": event, "shipment": shp})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "shipment not found", nil)
	case errors.Is(err, ErrUnknownStatus):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown shipment status", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "status transition not allowed", nil)
	default:
		common.WriteError(w, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id must be a valid uuid", nil)
		return uuid.Nil, false
	}
	return id, true
}
