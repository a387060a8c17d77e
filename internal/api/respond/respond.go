package respond

import (
	"encoding/json"
	"net/http"
	"strconv"

	"stitch/internal/engine/admission"
)

// AdmissionResponse is the wire shape of every admission check, whether it
// comes from the verify endpoint or the key middleware. Rejections for a
// missing, unknown or revoked key are deliberately identical so callers can
// never probe which keys exist.
type AdmissionResponse struct {
	Valid        bool     `json:"valid"`
	TenantID     string   `json:"tenant_id,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	RateLimit    int      `json:"rate_limit,omitempty"`
	CurrentUsage int      `json:"current_usage,omitempty"`
	Error        string   `json:"error,omitempty"`
	RetryAfter   int      `json:"retry_after,omitempty"`
}

// Admission writes the decision with its HTTP status: 200 admitted,
// 429 rate limited (with a Retry-After header), 401 otherwise.
func Admission(w http.ResponseWriter, decision *admission.Decision) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case decision.Allowed:
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(AdmissionResponse{
			Valid:        true,
			TenantID:     decision.TenantID,
			Permissions:  decision.Scopes,
			RateLimit:    decision.RateLimit,
			CurrentUsage: decision.CurrentUsage,
		})
	case decision.Reason == admission.ReasonRateLimited:
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(AdmissionResponse{
			Error:        "rate limit exceeded",
			RateLimit:    decision.RateLimit,
			CurrentUsage: decision.CurrentUsage,
			RetryAfter:   decision.RetryAfter,
		})
	default:
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(AdmissionResponse{
			Error: "invalid API key",
		})
	}
}
