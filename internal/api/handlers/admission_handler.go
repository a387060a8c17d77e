package handlers

import (
	"encoding/json"
	"net/http"

	"stitch/internal/api/respond"
	"stitch/internal/engine/admission"
	"stitch/internal/pkg/errors"
)

// AdmissionHandler exposes the admission check to internal callers that
// carry the key in a request body instead of a header.
type AdmissionHandler struct {
	gateway *admission.Gateway
}

func NewAdmissionHandler(gateway *admission.Gateway) *AdmissionHandler {
	return &AdmissionHandler{gateway: gateway}
}

func (h *AdmissionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	decision, err := h.gateway.Admit(req.Key)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Admission check failed", nil)
		return
	}

	respond.Admission(w, decision)
}
