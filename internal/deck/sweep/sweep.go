// Package sweep removes expired cache entries in the background.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper deletes expired entries and reports how many it removed.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Start sweeps store every interval until ctx is cancelled. A non-positive
// interval returns immediately.
func Start(ctx context.Context, store Sweeper, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.SweepExpired(ctx)
			if err != nil {
				log.Debug().Err(err).Msg("kv sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("kv sweep")
			}
		}
	}
}
