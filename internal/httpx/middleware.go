package httpx

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/davitr/go-storefront/internal/cart"
)

// Identity is resolved by the fronting auth proxy, which verifies the
// session and forwards trusted headers. Guests carry a locally generated
// token instead of a user id.
type Identity struct {
	UserID     string
	GuestToken string
	Admin      bool
}

func (id Identity) Anonymous() bool { return id.UserID == "" && id.GuestToken == "" }

func (id Identity) CartOwner() cart.Owner {
	if id.UserID != "" {
		return cart.Owner{UserID: id.UserID}
	}
	return cart.Owner{GuestToken: id.GuestToken}
}

type ctxKey int

const identityKey ctxKey = 0

func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

// Identify reads the identity headers set by the auth proxy.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			UserID:     r.Header.Get("X-User-Id"),
			GuestToken: r.Header.Get("X-Guest-Token"),
			Admin:      r.Header.Get("X-User-Role") == "admin",
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// RequireShopper admits signed-in users and guests; fully anonymous
// requests get 401.
func RequireShopper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()).Anonymous() {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser admits signed-in users only.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()).UserID == "" {
			writeError(w, http.StatusUnauthorized, "sign-in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id.UserID == "" {
			writeError(w, http.StatusUnauthorized, "sign-in required")
			return
		}
		if !id.Admin {
			writeError(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCronSecret guards the sweeper trigger with a shared secret header.
func RequireCronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Cron-Secret")
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "bad cron secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
