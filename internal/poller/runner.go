// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run fires PollOnce immediately, then once per interval until ctx is done.
// One goroutine. No overlap: a slow tick delays the next one.
// It always returns nil; cancellation is the only way out.
func (p *Poller) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	p.PollOnce(time.Now())

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			// a stop request that raced the tick wins
			if ctx.Err() != nil {
				return nil
			}
			p.PollOnce(now)
		}
	}
}
