package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/centbook/centbook/internal/platform/httpx"
	"github.com/centbook/centbook/internal/shared"
)

// Handler exposes the financial health score endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers health score routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/score", h.score)
}

func (h *Handler) score(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	score, err := h.service.GetScore(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("health score failed", "owner_id", ownerID, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, score)
}
