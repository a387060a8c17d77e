package models

type APIKey struct {
	ID         string   `json:"id"`
	TenantID   string   `json:"tenant_id"`
	Name       string   `json:"name"`
	KeyHash    string   `json:"-"`
	KeyPrefix  string   `json:"key_prefix"`
	Scopes     []string `json:"scopes"` // JSON array in DB
	RateLimit  int      `json:"rate_limit"` // admitted requests per rolling hour
	LastUsedAt *int64   `json:"last_used_at,omitempty"`
	CreatedAt  int64    `json:"created_at"`
	RevokedAt  *int64   `json:"revoked_at,omitempty"`
}

func (k *APIKey) Revoked() bool {
	return k.RevokedAt != nil
}

func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// UsageEvent is one admitted request, appended to the usage ledger.
// Rows are never mutated; the rate limiter only counts them in a
// trailing window relative to now.
type UsageEvent struct {
	ID        string `json:"id"`
	APIKeyID  string `json:"api_key_id"`
	CreatedAt int64  `json:"created_at"`
}
