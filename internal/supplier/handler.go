package supplier

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/impexflow/backend-impex/internal/common"
)

// Handler exposes supplier management endpoints.
type Handler struct {
	store    Store
	validate *validator.Validate
	perPage  int
	maxPage  int
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Store          Store
	Validate       *validator.Validate
	DefaultPerPage int
	MaxPerPage     int
}

// Input is the create/update payload for a supplier.
type Input struct {
	Name         string `json:"name" validate:"required,min=1,max=200"`
	Country      string `json:"country,omitempty" validate:"max=100"`
	Currency     string `json:"currency,omitempty" validate:"omitempty,oneof=USD EUR ZAR"`
	ContactEmail string `json:"contact_email,omitempty" validate:"omitempty,email"`
	PaymentTerms string `json:"payment_terms,omitempty" validate:"max=200"`
	Notes        string `json:"notes,omitempty" validate:"max=2000"`
	Active       *bool  `json:"active,omitempty"`
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
	return &Handler{store: cfg.Store, validate: cfg.Validate, perPage: perPage, maxPage: maxPage}
}

// Routes mounts the supplier endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// Create handles POST /api/v1/suppliers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, h.validate, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	sup, err := h.store.Insert(r.Context(), fromInput(uuid.Nil, in))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, sup)
}

// Get handles GET /api/v1/suppliers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	sup, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sup)
}

// List handles GET /api/v1/suppliers with optional active filtering.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.perPage, h.maxPage)
	activeOnly := strings.EqualFold(r.URL.Query().Get("active"), "true")
	items, err := h.store.List(r.Context(), activeOnly, perPage, common.Offset(page, perPage))
	if err != nil {
		h.writeError(w, err)
		return
	}
	total, err := h.store.Count(r.Context(), activeOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONPage(w, http.StatusOK, items, common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}

// Update handles PUT /api/v1/suppliers/{id}.
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
	sup, err := h.store.Update(r.Context(), fromInput(id, in))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sup)
}

// Delete handles DELETE /api/v1/suppliers/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "supplier not found", nil)
	case errors.Is(err, ErrDuplicateName):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "supplier name already exists", nil)
	default:
		common.WriteError(w, err)
	}
}

func fromInput(id uuid.UUID, in Input) Supplier {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return Supplier{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Country:      strings.TrimSpace(in.Country),
		Currency:     strings.ToUpper(strings.TrimSpace(in.Currency)),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		PaymentTerms: strings.TrimSpace(in.PaymentTerms),
		Notes:        strings.TrimSpace(in.Notes),
		Active:       active,
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
