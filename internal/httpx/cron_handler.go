package httpx

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davitr/go-storefront/internal/stock"
)

// CronHandler exposes the reservation-expiry sweeper behind a shared-secret
// header. The sweep itself is idempotent, so overlapping cron fires are
// harmless.
type CronHandler struct {
	Engine *stock.Engine
	Secret string
}

func (h *CronHandler) Register(r *chi.Mux) {
	r.With(RequireCronSecret(h.Secret)).Get("/cron/reserved-stock", h.sweep)
}

func (h *CronHandler) sweep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	released, err := h.Engine.Sweep(ctx)
	if err != nil {
		log.Printf("reserved-stock sweep: %v", err)
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"released": released})
}
