package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davitr/go-storefront/internal/notify"
)

type NotificationStore interface {
	ListByRecipient(ctx context.Context, recipient string) ([]notify.Notification, error)
	MarkRead(ctx context.Context, recipient string) (int, error)
}

type NotificationsHandler struct {
	Repo NotificationStore
}

func (h *NotificationsHandler) Register(r *chi.Mux) {
	r.With(RequireUser).Get("/notifications", h.list)
	r.With(RequireUser).Put("/notifications/read", h.markRead)
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ns, err := h.Repo.ListByRecipient(ctx, IdentityFromContext(ctx).UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if ns == nil {
		ns = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, ns)
}

func (h *NotificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	n, err := h.Repo.MarkRead(ctx, IdentityFromContext(ctx).UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked": n})
}
