package notify

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/impexflow/backend-impex/internal/common"
)

// Handler exposes notification history endpoints.
type Handler struct {
	store   Store
	perPage int
	maxPage int
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Store          Store
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
	return &Handler{store: cfg.Store, perPage: perPage, maxPage: maxPage}
}

// Routes mounts the notification endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// List handles GET /api/v1/notifications with optional status filtering.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.perPage, h.maxPage)
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", StatusPending, StatusSent, StatusFailed:
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown notification status", nil)
		return
	}
	items, err := h.store.List(r.Context(), status, perPage, common.Offset(page, perPage))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	total, err := h.store.Count(r.Context(), status)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONPage(w, http.StatusOK, items, common.Pagination{Page: page, PerPage: perPage, TotalItems: total})
}
