package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper drops expired state and reports how many entries it removed.
type Sweeper interface {
	Sweep() int
}

// StartSweeper runs s every interval until ctx is done. It returns a channel
// closed once the loop exits.
func StartSweeper(ctx context.Context, s Sweeper, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.Sweep(); removed > 0 {
					logger.Debug("swept expired rate-limit windows", zap.Int("removed", removed))
				}
			}
		}
	}()
	return done
}
