package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/procureflow/procureflow/internal/platform/httpx"
)

// Handler exposes the audit timeline as JSON.
type Handler struct {
	logger *slog.Logger
	trail  *Trail
}

// NewHandler builds the audit HTTP handler.
func NewHandler(logger *slog.Logger, trail *Trail) *Handler {
	return &Handler{logger: logger, trail: trail}
}

// MountRoutes attaches audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	result, err := h.trail.Timeline(r.Context(), TimelineFilters{
		Entity:   r.URL.Query().Get("entity"),
		Action:   r.URL.Query().Get("action"),
		Actor:    r.URL.Query().Get("actor"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
