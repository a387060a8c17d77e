package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"stitch/internal/platform/models"
)

type APIKeyRepository struct {
	db *sql.DB
}

func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(key *models.APIKey) error {
	if key.ID == "" {
		key.ID = "key_" + uuid.New().String()
	}
	key.CreatedAt = time.Now().Unix()

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO api_keys (id, tenant_id, name, key_hash, key_prefix, scopes, rate_limit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, key.ID, key.TenantID, key.Name, key.KeyHash, key.KeyPrefix, string(scopesJSON), key.RateLimit, key.CreatedAt)
	return err
}

// GetByHash is the admission lookup path. It is intentionally unscoped by
// tenant: the tenant is learned from the key, not presented alongside it.
func (r *APIKeyRepository) GetByHash(hash string) (*models.APIKey, error) {
	query := `SELECT id, tenant_id, name, key_prefix, scopes, rate_limit, last_used_at, created_at, revoked_at FROM api_keys WHERE key_hash = ?`
	row := r.db.QueryRow(query, hash)

	var k models.APIKey
	var scopesStr string
	var lastUsedAt sql.NullInt64
	var revokedAt sql.NullInt64

	err := row.Scan(&k.ID, &k.TenantID, &k.Name, &k.KeyPrefix, &scopesStr, &k.RateLimit, &lastUsedAt, &k.CreatedAt, &revokedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if lastUsedAt.Valid {
		k.LastUsedAt = new(int64)
		*k.LastUsedAt = lastUsedAt.Int64
	}
	if revokedAt.Valid {
		k.RevokedAt = new(int64)
		*k.RevokedAt = revokedAt.Int64
	}

	json.Unmarshal([]byte(scopesStr), &k.Scopes)
	k.KeyHash = hash

	return &k, nil
}

func (r *APIKeyRepository) ListByTenant(tenantID string) ([]*models.APIKey, error) {
	query := `SELECT id, name, key_prefix, scopes, rate_limit, last_used_at, created_at, revoked_at FROM api_keys WHERE tenant_id = ? ORDER BY created_at DESC`
	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		var scopesStr string
		var lastUsedAt sql.NullInt64
		var revokedAt sql.NullInt64

		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &scopesStr, &k.RateLimit, &lastUsedAt, &k.CreatedAt, &revokedAt); err != nil {
			return nil, err
		}

		if lastUsedAt.Valid {
			k.LastUsedAt = new(int64)
			*k.LastUsedAt = lastUsedAt.Int64
		}
		if revokedAt.Valid {
			k.RevokedAt = new(int64)
			*k.RevokedAt = revokedAt.Int64
		}
		json.Unmarshal([]byte(scopesStr), &k.Scopes)
		k.TenantID = tenantID
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// Revoke is permanent. The guard on revoked_at keeps an already-set timestamp
// from being overwritten, so a key can never be un-revoked or re-revoked.
func (r *APIKeyRepository) Revoke(tenantID, id string) error {
	_, err := r.db.Exec(`UPDATE api_keys SET revoked_at = ? WHERE tenant_id = ? AND id = ? AND revoked_at IS NULL`, time.Now().Unix(), tenantID, id)
	return err
}

func (r *APIKeyRepository) UpdateLastUsed(id string) error {
	_, err := r.db.Exec(`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, time.Now().Unix(), id)
	return err
}
