package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"stitch/internal/platform/models"
)

type DeliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// Record appends one attempt row. Attempts are written before the retry
// decision is made, so a crash mid-chain still leaves the partial history.
func (r *DeliveryRepository) Record(attempt *models.DeliveryAttempt) error {
	if attempt.ID == "" {
		attempt.ID = "att_" + uuid.New().String()
	}
	if attempt.CreatedAt == 0 {
		attempt.CreatedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO delivery_attempts (id, endpoint_id, tenant_id, event, payload, status, attempt, response_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, attempt.ID, attempt.EndpointID, attempt.TenantID, attempt.Event, attempt.Payload, attempt.Status, attempt.Attempt, attempt.ResponseCode, attempt.CreatedAt)
	return err
}

func (r *DeliveryRepository) ListByEndpoint(tenantID, endpointID string, limit int) ([]*models.DeliveryAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, endpoint_id, tenant_id, event, payload, status, attempt, response_code, created_at
		FROM delivery_attempts WHERE tenant_id = ? AND endpoint_id = ?
		ORDER BY created_at DESC, attempt DESC LIMIT ?
	`
	rows, err := r.db.Query(query, tenantID, endpointID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.DeliveryAttempt
	for rows.Next() {
		var a models.DeliveryAttempt
		if err := rows.Scan(&a.ID, &a.EndpointID, &a.TenantID, &a.Event, &a.Payload, &a.Status, &a.Attempt, &a.ResponseCode, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}

func (r *DeliveryRepository) PruneBefore(cutoff int64) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM delivery_attempts WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
