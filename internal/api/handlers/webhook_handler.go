package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "stitch/internal/api/context"
	"stitch/internal/engine/admission"
	"stitch/internal/pkg/errors"
	"stitch/internal/pkg/validator"
	"stitch/internal/platform/models"
	"stitch/internal/platform/repositories"
)

type WebhookHandler struct {
	repo       *repositories.WebhookRepository
	deliveries *repositories.DeliveryRepository
}

func NewWebhookHandler(repo *repositories.WebhookRepository, deliveries *repositories.DeliveryRepository) *WebhookHandler {
	return &WebhookHandler{repo: repo, deliveries: deliveries}
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	decision := r.Context().Value(apiContext.Admission).(*admission.Decision)

	var req struct {
		URL    string   `json:"url"`
		Events []string `json:"events"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if err := validator.ValidateTargetURL(req.URL); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	endpoint := &models.WebhookEndpoint{
		TenantID: decision.TenantID,
		URL:      req.URL,
		Secret:   generateSecret(),
		Events:   models.FilterEvents(req.Events),
		Enabled:  true,
	}

	if err := h.repo.Create(endpoint); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create webhook", nil)
		return
	}

	// The secret is shown here once and is never retrievable again.
	response := struct {
		ID        string   `json:"id"`
		URL       string   `json:"url"`
		Secret    string   `json:"secret"`
		Events    []string `json:"events"`
		Enabled   bool     `json:"enabled"`
		CreatedAt int64    `json:"created_at"`
	}{
		ID:        endpoint.ID,
		URL:       endpoint.URL,
		Secret:    endpoint.Secret,
		Events:    endpoint.Events,
		Enabled:   endpoint.Enabled,
		CreatedAt: endpoint.CreatedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	decision := r.Context().Value(apiContext.Admission).(*admission.Decision)

	endpoints, err := h.repo.ListByTenant(decision.TenantID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list webhooks", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(endpoints)
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	decision := r.Context().Value(apiContext.Admission).(*admission.Decision)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	endpoint, err := h.repo.GetByID(decision.TenantID, params.ByName("webhook_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load webhook", nil)
		return
	}
	if endpoint == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(endpoint)
}

func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	decision := r.Context().Value(apiContext.Admission).(*admission.Decision)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	var req struct {
		URL     string   `json:"url"`
		Events  []string `json:"events"`
		Enabled *bool    `json:"enabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	endpoint, err := h.repo.GetByID(decision.TenantID, params.ByName("webhook_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load webhook", nil)
		return
	}
	if endpoint == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return
	}

	if req.URL != "" {
		if err := validator.ValidateTargetURL(req.URL); err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
			return
		}
		endpoint.URL = req.URL
	}
	if req.Events != nil {
		endpoint.Events = models.FilterEvents(req.Events)
	}
	if req.Enabled != nil {
		endpoint.Enabled = *req.Enabled
	}

	if err := h.repo.Update(endpoint); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update webhook", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(endpoint)
}

// Delete removes the endpoint. Its delivery attempts remain in the log.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	decision := r.Context().Value(apiContext.Admission).(*admission.Decision)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	if err := h.repo.Delete(decision.TenantID, params.ByName("webhook_id")); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to delete webhook", nil)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ListDeliveries returns the per-attempt history for one endpoint, newest
// first. This is the diagnostics view of delivery outcomes.
func (h *WebhookHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	decision := r.Context().Value(apiContext.Admission).(*admission.Decision)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)

	attempts, err := h.deliveries.ListByEndpoint(decision.TenantID, params.ByName("webhook_id"), 100)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list deliveries", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(attempts)
}

func generateSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return "whsec_" + hex.EncodeToString(buf)
}
