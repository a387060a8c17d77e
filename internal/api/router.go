package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "stitch/internal/api/context"
	"stitch/internal/api/handlers"
	"stitch/internal/api/middleware"
	"stitch/internal/engine/admission"
	"stitch/internal/pkg/errors"
)

type Dependencies struct {
	HealthHandler    *handlers.HealthHandler
	AdmissionHandler *handlers.AdmissionHandler
	APIKeyHandler    *handlers.APIKeyHandler
	WebhookHandler   *handlers.WebhookHandler
	EventHandler     *handlers.EventHandler
	APIKeyMiddleware *middleware.APIKeyMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Admission check for internal callers carrying the key in the body.
	router.POST("/api/v1/keys/verify", wrap(deps.AdmissionHandler.Verify))

	keyMid := deps.APIKeyMiddleware

	// Webhook registration
	router.POST("/api/v1/webhooks",
		chain(deps.WebhookHandler.Create, keyMid.Handle, requireScope("webhooks:manage")))
	router.GET("/api/v1/webhooks",
		chain(deps.WebhookHandler.List, keyMid.Handle, requireScope("webhooks:manage")))
	router.GET("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Get, keyMid.Handle, requireScope("webhooks:manage")))
	router.PATCH("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Update, keyMid.Handle, requireScope("webhooks:manage")))
	router.DELETE("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Delete, keyMid.Handle, requireScope("webhooks:manage")))
	// The attempt log is usage telemetry, not registration state, so it gets
	// its own read scope.
	router.GET("/api/v1/webhooks/:webhook_id/deliveries",
		chain(deps.WebhookHandler.ListDeliveries, keyMid.Handle, requireScope("usage:read")))

	// API key management
	router.POST("/api/v1/keys",
		chain(deps.APIKeyHandler.Create, keyMid.Handle, requireScope("keys:manage")))
	router.GET("/api/v1/keys",
		chain(deps.APIKeyHandler.List, keyMid.Handle, requireScope("keys:manage")))
	router.DELETE("/api/v1/keys/:key_id",
		chain(deps.APIKeyHandler.Revoke, keyMid.Handle, requireScope("keys:manage")))

	// Event production
	router.POST("/api/v1/events",
		chain(deps.EventHandler.Publish, keyMid.Handle, requireScope("events:publish")))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

func requireScope(scope string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := r.Context().Value(apiContext.Admission).(*admission.Decision)

			allowed := false
			for _, s := range decision.Scopes {
				if s == scope {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
