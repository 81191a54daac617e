package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// startLoop runs fn immediately and then on every interval tick until ctx is
// cancelled. Errors are logged and never stop the loop.
func startLoop(ctx context.Context, wg *sync.WaitGroup, logger zerolog.Logger, name string, interval time.Duration, fn func(context.Context) error) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		run := func() {
			runCtx, cancel := context.WithTimeout(ctx, interval)
			defer cancel()
			if err := fn(runCtx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Str("loop", name).Msg("loop run failed")
			}
		}

		run()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
