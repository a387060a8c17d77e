package handlers

import (
	"encoding/json"
	"net/http"

	apiContext "stitch/internal/api/context"
	"stitch/internal/engine/admission"
	"stitch/internal/engine/delivery"
	"stitch/internal/pkg/errors"
	"stitch/internal/platform/models"
)

// EventHandler is the internal producer entrypoint: it hands a domain event
// to the delivery engine for the admitted tenant and reports the fan-out
// summary once every endpoint chain has finished.
type EventHandler struct {
	engine *delivery.Engine
}

func NewEventHandler(engine *delivery.Engine) *EventHandler {
	return &EventHandler{engine: engine}
}

func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	decision := r.Context().Value(apiContext.Admission).(*admission.Decision)

	var req struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if !models.IsKnownEvent(req.Event) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Unknown event type", nil)
		return
	}

	if req.Data == nil {
		req.Data = json.RawMessage(`{}`)
	}

	report, err := h.engine.Deliver(delivery.Event{
		TenantID: decision.TenantID,
		Type:     req.Event,
		Payload:  req.Data,
	})
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Delivery failed", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
