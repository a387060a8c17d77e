package admission

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog/log"
	"stitch/internal/platform/repositories"
)

const (
	ReasonMissingKey  = "missing_key"
	ReasonInvalidKey  = "invalid_key"
	ReasonRevoked     = "revoked"
	ReasonRateLimited = "rate_limited"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed      bool
	Reason       string // empty when allowed
	KeyID        string
	TenantID     string
	Scopes       []string
	RateLimit    int
	CurrentUsage int
	RetryAfter   int // seconds, set only when rate limited
}

// Gateway validates presented API keys and enforces each key's sliding
// one-hour rate limit against the usage ledger. Any store failure comes back
// as a non-nil error so callers fail closed instead of admitting unmetered.
type Gateway struct {
	keys       *repositories.APIKeyRepository
	usage      *repositories.UsageRepository
	window     time.Duration
	retryAfter int
}

func NewGateway(keys *repositories.APIKeyRepository, usage *repositories.UsageRepository, retryAfter int) *Gateway {
	if retryAfter <= 0 {
		retryAfter = 3600
	}
	return &Gateway{
		keys:       keys,
		usage:      usage,
		window:     time.Hour,
		retryAfter: retryAfter,
	}
}

// HashKey is the one-way digest used both at issuance and at admission.
func HashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

func (g *Gateway) Admit(rawKey string) (*Decision, error) {
	if rawKey == "" {
		return &Decision{Reason: ReasonMissingKey}, nil
	}

	key, err := g.keys.GetByHash(HashKey(rawKey))
	if err != nil {
		log.Error().Err(err).Msg("api key lookup failed")
		return nil, err
	}
	if key == nil {
		// Same decision shape as a missing key so responses never reveal
		// which keys exist.
		return &Decision{Reason: ReasonInvalidKey}, nil
	}
	if key.Revoked() {
		return &Decision{Reason: ReasonRevoked}, nil
	}

	since := time.Now().Add(-g.window).Unix()
	count, err := g.usage.CountSince(key.ID, since)
	if err != nil {
		log.Error().Err(err).Str("key_id", key.ID).Msg("usage count failed")
		return nil, err
	}

	if count >= key.RateLimit {
		return &Decision{
			Reason:       ReasonRateLimited,
			KeyID:        key.ID,
			TenantID:     key.TenantID,
			RateLimit:    key.RateLimit,
			CurrentUsage: count,
			RetryAfter:   g.retryAfter,
		}, nil
	}

	if err := g.usage.Record(key.ID); err != nil {
		log.Error().Err(err).Str("key_id", key.ID).Msg("usage record failed")
		return nil, err
	}
	if err := g.keys.UpdateLastUsed(key.ID); err != nil {
		log.Error().Err(err).Str("key_id", key.ID).Msg("last-used update failed")
		return nil, err
	}

	return &Decision{
		Allowed:      true,
		KeyID:        key.ID,
		TenantID:     key.TenantID,
		Scopes:       key.Scopes,
		RateLimit:    key.RateLimit,
		CurrentUsage: count + 1,
	}, nil
}
