package workers

import (
	"time"

	"github.com/rs/zerolog/log"
	"stitch/internal/platform/repositories"
)

// Retention prunes aged rows from the append-only logs. Usage events only
// matter inside the sliding rate-limit window and delivery attempts only as
// recent diagnostics, so anything past the horizon is safe to drop in bulk.
type Retention struct {
	usage      *repositories.UsageRepository
	deliveries *repositories.DeliveryRepository
	horizon    time.Duration
}

func NewRetention(usage *repositories.UsageRepository, deliveries *repositories.DeliveryRepository, horizon time.Duration) *Retention {
	if horizon <= 0 {
		horizon = 30 * 24 * time.Hour
	}
	return &Retention{usage: usage, deliveries: deliveries, horizon: horizon}
}

func (r *Retention) Sweep() {
	cutoff := time.Now().Add(-r.horizon).Unix()

	pruned, err := r.usage.PruneBefore(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("usage retention sweep failed")
	} else if pruned > 0 {
		log.Info().Int64("rows", pruned).Msg("pruned aged usage events")
	}

	pruned, err = r.deliveries.PruneBefore(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("delivery retention sweep failed")
	} else if pruned > 0 {
		log.Info().Int64("rows", pruned).Msg("pruned aged delivery attempts")
	}
}
