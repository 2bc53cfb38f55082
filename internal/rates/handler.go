package rates

import (
	"net/http"

	"github.com/impexflow/backend-impex/internal/common"
)

// Handler exposes the exchange-rate endpoint.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Current handles GET /api/v1/rates.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rates service not configured", nil)
		return
	}
	quote, err := h.service.Current(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}
