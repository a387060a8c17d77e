package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"stitch/internal/platform/models"
)

// UsageRepository is the append-only admission ledger. Rows are only ever
// inserted and counted; expiry is implicit in the trailing-window query.
type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Record(keyID string) error {
	event := &models.UsageEvent{
		ID:        "use_" + uuid.New().String(),
		APIKeyID:  keyID,
		CreatedAt: time.Now().Unix(),
	}
	_, err := r.db.Exec(`INSERT INTO usage_events (id, api_key_id, created_at) VALUES (?, ?, ?)`, event.ID, event.APIKeyID, event.CreatedAt)
	return err
}

// CountSince counts usage events for a key at or after the given unix
// timestamp. The sliding rate-limit window is always computed relative to
// now, never aligned to clock-hour boundaries.
func (r *UsageRepository) CountSince(keyID string, since int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM usage_events WHERE api_key_id = ? AND created_at >= ?`, keyID, since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UsageRepository) PruneBefore(cutoff int64) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM usage_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
