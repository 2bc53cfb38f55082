package report

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/impexflow/backend-impex/internal/common"
)

// Handler exposes reporting endpoints.
type Handler struct {
	store Store
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Store Store
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{store: cfg.Store}
}

// Routes mounts the report endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/suppliers", h.Suppliers)
	r.Get("/monthly", h.Monthly)
	r.Get("/shipments", h.Shipments)
	return r
}

// Suppliers handles GET /api/v1/reports/suppliers.
func (h *Handler) Suppliers(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}
	summaries, err := h.store.SupplierSummaries(r.Context(), from, to)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if summaries == nil {
		summaries = []SupplierSummary{}
	}
	common.JSONData(w, http.StatusOK, summaries)
}

// Monthly handles GET /api/v1/reports/monthly.
func (h *Handler) Monthly(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}
	summaries, err := h.store.MonthlySummaries(r.Context(), from, to)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if summaries == nil {
		summaries = []MonthlySummary{}
	}
	common.JSONData(w, http.StatusOK, summaries)
}

// Shipments handles GET /api/v1/reports/shipments.
func (h *Handler) Shipments(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.ShipmentStatusCounts(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if counts == nil {
		counts = []ShipmentStatusCount{}
	}
	common.JSONData(w, http.StatusOK, counts)
}

// parseRange reads from/to query dates in YYYY-MM-DD form. The default window
// is the trailing twelve months.
func parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(-1, 0, 0)
	to := now

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be YYYY-MM-DD", nil)
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must be YYYY-MM-DD", nil)
			return time.Time{}, time.Time{}, false
		}
		// inclusive end date
		to = parsed.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must be after from", nil)
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
