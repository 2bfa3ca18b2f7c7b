package transport

import (
	"context"
	"time"
)

// runEvery calls fn every interval until ctx is cancelled, then returns
// ctx.Err().
func runEvery(ctx context.Context, interval time.Duration, fn func()) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			fn()
		}
	}
}
