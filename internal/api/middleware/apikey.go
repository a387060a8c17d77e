package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "stitch/internal/api/context"
	"stitch/internal/api/respond"
	"stitch/internal/engine/admission"
	"stitch/internal/pkg/errors"
)

type APIKeyMiddleware struct {
	gateway *admission.Gateway
}

func NewAPIKeyMiddleware(gateway *admission.Gateway) *APIKeyMiddleware {
	return &APIKeyMiddleware{gateway: gateway}
}

// Handle gates a request on the presented API key. The key arrives via the
// X-API-Key header or an Authorization bearer token. The decision is stored
// in the request context for scope checks and tenant scoping downstream.
func (m *APIKeyMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decision, err := m.gateway.Admit(presentedKey(r))
		if err != nil {
			// Fail closed: a store fault is an internal error, never an admit.
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Admission check failed", nil)
			return
		}

		if !decision.Allowed {
			respond.Admission(w, decision)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Admission, decision)
		next(w, r.WithContext(ctx))
	}
}

func presentedKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}

	return ""
}
