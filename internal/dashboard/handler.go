package dashboard

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appMiddleware "taskmaster/internal/middleware"
	"taskmaster/internal/web"
)

// Handler — HTTP слой дашборда.
type Handler struct {
	agg *Aggregator
	rs  *web.Responder
	now func() time.Time
}

// NewHandler создаёт Handler.
func NewHandler(agg *Aggregator, rs *web.Responder) *Handler {
	return &Handler{agg: agg, rs: rs, now: time.Now}
}

// Routes собирает роутер дашборда, монтируется на /api/dashboard.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", h.stats)
	r.Get("/recent", h.recent)
	return r
}

// stats обрабатывает GET /api/dashboard/stats
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := appMiddleware.UserID(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	stats, err := h.agg.ComputeStats(r.Context(), ownerID, h.now())
	if err != nil {
		h.rs.Fail(w, r, err, "Failed to fetch dashboard statistics")
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"stats": stats})
}

// recent обрабатывает GET /api/dashboard/recent
func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := appMiddleware.UserID(r.Context())
	if !ok {
		web.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	recent, err := h.agg.Recent(r.Context(), ownerID)
	if err != nil {
		h.rs.Fail(w, r, err, "Failed to fetch recent tasks")
		return
	}
	web.JSON(w, http.StatusOK, map[string]any{"tasks": recent})
}
