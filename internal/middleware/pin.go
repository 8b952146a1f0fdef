package middleware

import (
	"errors"
	"net/http"

	"github.com/finova-pos/api/internal/service"
)

// PinHeader carries the reports PIN on gated requests.
const PinHeader = "X-Reports-Pin"

// RequireReportsPin gates report routes behind the owner's 4-digit PIN.
// Must run after Authenticate.
func RequireReportsPin(store service.PinStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			err := service.VerifyReportsPin(r.Context(), store, claims.UserID, r.Header.Get(PinHeader))
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, service.ErrInvalidPinFormat):
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			case errors.Is(err, service.ErrPinNotConfigured):
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			case errors.Is(err, service.ErrInvalidPin):
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			default:
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		})
	}
}
