package registry

import (
	"context"
	"log"
	"time"
)

// RunSweeper expires abandoned intents on a ticker until ctx is cancelled.
// A user who closes the gateway tab sends no cancel signal; this is the only
// path out of AWAITING_CALLBACK for them.
func RunSweeper(ctx context.Context, reg Registry, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			n, err := reg.SweepExpired(ctx, now)
			if err != nil {
				log.Printf("[Registry] sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[Registry] swept %d expired intent(s)", n)
			}
		}
	}
}
