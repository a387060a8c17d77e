package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	apiContext "stitch/internal/api/context"
	"stitch/internal/engine/admission"
	"stitch/internal/pkg/errors"
	"stitch/internal/platform/models"
	"stitch/internal/platform/repositories"
)

type APIKeyHandler struct {
	repo             *repositories.APIKeyRepository
	defaultRateLimit int
}

func NewAPIKeyHandler(repo *repositories.APIKeyRepository, defaultRateLimit int) *APIKeyHandler {
	return &APIKeyHandler{repo: repo, defaultRateLimit: defaultRateLimit}
}

func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	decision := r.Context().Value(apiContext.Admission).(*admission.Decision)

	var req struct {
		Name      string   `json:"name"`
		Scopes    []string `json:"scopes"`
		RateLimit int      `json:"rate_limit"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	rateLimit := req.RateLimit
	if rateLimit <= 0 {
		rateLimit = h.defaultRateLimit
	}

	// The plaintext leaves this handler exactly once; only the hash is stored.
	rawKey := "stc_live_" + uuid.New().String()
	keyPrefix := rawKey[:12] + "..."

	apiKey := &models.APIKey{
		TenantID:  decision.TenantID,
		Name:      req.Name,
		KeyHash:   admission.HashKey(rawKey),
		KeyPrefix: keyPrefix,
		Scopes:    models.FilterScopes(req.Scopes),
		RateLimit: rateLimit,
	}

	if err := h.repo.Create(apiKey); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create API key", nil)
		return
	}

	response := struct {
		ID        string   `json:"id"`
		Key       string   `json:"key"`
		Name      string   `json:"name"`
		Scopes    []string `json:"scopes"`
		RateLimit int      `json:"rate_limit"`
		CreatedAt int64    `json:"created_at"`
	}{
		ID:        apiKey.ID,
		Key:       rawKey,
		Name:      apiKey.Name,
		Scopes:    apiKey.Scopes,
		RateLimit: apiKey.RateLimit,
		CreatedAt: apiKey.CreatedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	decision := r.Context().Value(apiContext.Admission).(*admission.Decision)

	keys, err := h.repo.ListByTenant(decision.TenantID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list API keys", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(keys)
}

// Revoke soft-deletes a key. Usage history keeps referencing it, and the
// revocation never lifts.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	decision := r.Context().Value(apiContext.Admission).(*admission.Decision)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	keyID := params.ByName("key_id")

	if err := h.repo.Revoke(decision.TenantID, keyID); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to revoke API key", nil)
		return
	}

	w.WriteHeader(http.StatusOK)
}
