package storage

import (
	"context"
	"math/rand"
	"time"
)

// RetryBusy retries fn on a busy/locked classification with randomized
// backoff: ~[0,100ms) for the first ~10 attempts, then ~[0,400ms)
// thereafter (§4.6). Retries are unbounded but every sleep is finite;
// ctx cancellation aborts the loop.
func RetryBusy(ctx context.Context, isBusy func(error) bool, fn func() error) error {
	attempt := 0
	for {
		err := fn()
		if err == nil || !isBusy(err) {
			return err
		}
		attempt++
		window := 100 * time.Millisecond
		if attempt > 10 {
			window = 400 * time.Millisecond
		}
		sleep := time.Duration(rand.Int63n(int64(window)))
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
