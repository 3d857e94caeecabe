package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartJanitor evicts expired windows from l every interval until ctx is done.
func StartJanitor(
	ctx context.Context,
	l *FixedWindow,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := l.Sweep(); removed > 0 {
					log.Debug("evicted expired rate limit windows",
						zap.Int("removed", removed),
						zap.Int("tracked", l.Len()),
					)
				}
			}
		}
	}()
}
