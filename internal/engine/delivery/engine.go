package delivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"stitch/internal/pkg/validator"
	"stitch/internal/platform/config"
	"stitch/internal/platform/models"
	"stitch/internal/platform/repositories"
)

// Event is one domain occurrence to fan out to a tenant's endpoints.
type Event struct {
	TenantID string
	Type     string
	Payload  json.RawMessage
}

// EndpointOutcome is the terminal state of one endpoint's retry chain.
type EndpointOutcome struct {
	EndpointID string `json:"endpoint_id"`
	Delivered  bool   `json:"delivered"`
	Attempts   int    `json:"attempts"`
	LastStatus int    `json:"last_status"`
}

type Report struct {
	Event     string            `json:"event"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Outcomes  []EndpointOutcome `json:"outcomes"`
}

// Engine fans one event out to every matching endpoint, each on its own
// retry chain. Chains share nothing but the append-only attempt log, so no
// locking is needed between them.
type Engine struct {
	webhooks    *repositories.WebhookRepository
	attempts    *repositories.DeliveryRepository
	client      *http.Client
	maxAttempts int
	backoffBase time.Duration

	// checkHost guards against deliveries into the internal network.
	checkHost func(host string) error
}

func NewEngine(webhooks *repositories.WebhookRepository, attempts *repositories.DeliveryRepository, cfg config.WebhooksConfig) *Engine {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.BackoffBase
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		// A redirect is the endpoint's final answer. Following one would
		// re-POST the signed body at a location the host check never saw.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	checkHost := validator.CheckDeliveryHost
	if cfg.AllowInternalTargets {
		checkHost = func(string) error { return nil }
	} else {
		// Resolve-and-filter inside the dialer so a DNS answer cannot change
		// between the pre-flight check and the connection.
		client.Transport = &http.Transport{DialContext: validator.GuardedDialContext}
	}

	return &Engine{
		webhooks:    webhooks,
		attempts:    attempts,
		client:      client,
		maxAttempts: maxAttempts,
		backoffBase: backoff,
		checkHost:   checkHost,
	}
}

// Deliver resolves the tenant's enabled endpoints subscribed to the event
// type and runs one concurrent retry chain per endpoint. It returns only
// after every chain has reached its terminal attempt. Zero matching
// endpoints is a valid zero-notified report, not an error.
func (e *Engine) Deliver(event Event) (*Report, error) {
	endpoints, err := e.webhooks.GetSubscribed(event.TenantID, event.Type)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Event:    event.Type,
		Total:    len(endpoints),
		Outcomes: make([]EndpointOutcome, len(endpoints)),
	}
	if len(endpoints) == 0 {
		return report, nil
	}

	var wg sync.WaitGroup
	for i, endpoint := range endpoints {
		wg.Add(1)
		go func(i int, endpoint *models.WebhookEndpoint) {
			defer wg.Done()
			report.Outcomes[i] = e.runChain(endpoint, event)
		}(i, endpoint)
	}
	wg.Wait()

	for _, outcome := range report.Outcomes {
		if outcome.Delivered {
			report.Succeeded++
		}
	}

	log.Debug().
		Str("tenant_id", event.TenantID).
		Str("event", event.Type).
		Int("total", report.Total).
		Int("succeeded", report.Succeeded).
		Msg("delivery fan-out complete")

	return report, nil
}

// runChain executes up to maxAttempts tries against one endpoint. The
// payload is serialized and signed once; every attempt is persisted before
// the retry decision; backoff blocks only this chain.
func (e *Engine) runChain(endpoint *models.WebhookEndpoint, event Event) EndpointOutcome {
	envelope := models.Envelope{
		Event:     event.Type,
		Data:      event.Payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		log.Error().Err(err).Str("endpoint_id", endpoint.ID).Msg("failed to serialize webhook envelope")
		return EndpointOutcome{EndpointID: endpoint.ID}
	}

	signature := Sign(endpoint.Secret, body)

	outcome := EndpointOutcome{EndpointID: endpoint.ID}
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		status := e.post(endpoint, body, signature, event.Type)

		outcome.Attempts = attempt
		outcome.LastStatus = status
		delivered := status >= 200 && status < 300

		record := &models.DeliveryAttempt{
			EndpointID:   endpoint.ID,
			TenantID:     endpoint.TenantID,
			Event:        event.Type,
			Payload:      string(body),
			Status:       models.DeliveryStatusFailed,
			Attempt:      attempt,
			ResponseCode: status,
		}
		if delivered {
			record.Status = models.DeliveryStatusDelivered
		}
		if err := e.attempts.Record(record); err != nil {
			// The log is the delivery history; if it cannot be written the
			// chain aborts rather than retrying unrecorded.
			log.Error().Err(err).Str("endpoint_id", endpoint.ID).Msg("failed to record delivery attempt")
			return outcome
		}

		if delivered {
			outcome.Delivered = true
			return outcome
		}

		log.Warn().
			Str("endpoint_id", endpoint.ID).
			Str("event", event.Type).
			Int("attempt", attempt).
			Int("status", status).
			Msg("webhook delivery attempt failed")

		if attempt < e.maxAttempts {
			// Doubles each retry, starting at the configured base.
			time.Sleep(e.backoffBase << uint(attempt-1))
		}
	}

	return outcome
}

// post issues one webhook POST and returns the HTTP status, or 0 when no
// response was received (blocked host, connection, DNS or timeout failure).
func (e *Engine) post(endpoint *models.WebhookEndpoint, body []byte, signature, eventType string) int {
	req, err := http.NewRequest(http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return 0
	}

	// Target URLs are tenant-controlled; re-check the host on every attempt
	// so a DNS change after registration cannot point a delivery at the
	// internal network.
	if err := e.checkHost(req.URL.Hostname()); err != nil {
		log.Warn().Err(err).Str("endpoint_id", endpoint.ID).Msg("refusing webhook delivery target")
		return 0
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Webhook-Event", eventType)

	resp, err := e.client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	return resp.StatusCode
}
