package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"stitch/internal/platform/models"
)

type WebhookRepository struct {
	db *sql.DB
}

func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(endpoint *models.WebhookEndpoint) error {
	if endpoint.ID == "" {
		endpoint.ID = "wh_" + uuid.New().String()
	}
	endpoint.CreatedAt = time.Now().Unix()
	endpoint.UpdatedAt = endpoint.CreatedAt

	eventsJSON, err := json.Marshal(endpoint.Events)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO webhook_endpoints (id, tenant_id, url, secret, events, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, endpoint.ID, endpoint.TenantID, endpoint.URL, endpoint.Secret, string(eventsJSON), endpoint.Enabled, endpoint.CreatedAt, endpoint.UpdatedAt)
	return err
}

func (r *WebhookRepository) GetByID(tenantID, id string) (*models.WebhookEndpoint, error) {
	query := `SELECT id, tenant_id, url, secret, events, enabled, created_at, updated_at FROM webhook_endpoints WHERE tenant_id = ? AND id = ?`
	row := r.db.QueryRow(query, tenantID, id)

	var w models.WebhookEndpoint
	var eventsStr string

	err := row.Scan(&w.ID, &w.TenantID, &w.URL, &w.Secret, &eventsStr, &w.Enabled, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	json.Unmarshal([]byte(eventsStr), &w.Events)

	return &w, nil
}

func (r *WebhookRepository) ListByTenant(tenantID string) ([]*models.WebhookEndpoint, error) {
	query := `SELECT id, tenant_id, url, secret, events, enabled, created_at, updated_at FROM webhook_endpoints WHERE tenant_id = ? ORDER BY created_at DESC`
	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []*models.WebhookEndpoint
	for rows.Next() {
		var w models.WebhookEndpoint
		var eventsStr string

		if err := rows.Scan(&w.ID, &w.TenantID, &w.URL, &w.Secret, &eventsStr, &w.Enabled, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(eventsStr), &w.Events)
		endpoints = append(endpoints, &w)
	}
	return endpoints, rows.Err()
}

func (r *WebhookRepository) Update(endpoint *models.WebhookEndpoint) error {
	eventsJSON, err := json.Marshal(endpoint.Events)
	if err != nil {
		return err
	}
	endpoint.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE webhook_endpoints
		SET url = ?, events = ?, enabled = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`
	_, err = r.db.Exec(query, endpoint.URL, string(eventsJSON), endpoint.Enabled, endpoint.UpdatedAt, endpoint.TenantID, endpoint.ID)
	return err
}

// Delete removes the endpoint row only. Delivery attempts referencing it are
// kept for diagnostics and must never block removal.
func (r *WebhookRepository) Delete(tenantID, id string) error {
	_, err := r.db.Exec(`DELETE FROM webhook_endpoints WHERE tenant_id = ? AND id = ?`, tenantID, id)
	return err
}

// GetSubscribed returns the tenant's enabled endpoints subscribed to the given
// event type. Event sets are stored as JSON arrays, so the subscription match
// happens in-process after filtering on enabled.
func (r *WebhookRepository) GetSubscribed(tenantID, eventType string) ([]*models.WebhookEndpoint, error) {
	query := `SELECT id, tenant_id, url, secret, events, enabled FROM webhook_endpoints WHERE tenant_id = ? AND enabled = 1`
	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matched []*models.WebhookEndpoint
	for rows.Next() {
		var w models.WebhookEndpoint
		var eventsStr string
		if err := rows.Scan(&w.ID, &w.TenantID, &w.URL, &w.Secret, &eventsStr, &w.Enabled); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(eventsStr), &w.Events); err != nil {
			continue
		}
		if w.SubscribedTo(eventType) {
			matched = append(matched, &w)
		}
	}
	return matched, rows.Err()
}
