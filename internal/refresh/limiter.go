package refresh

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate limits the rate of upstream calls. A token bucket sized to the
// per-minute budget bounds sustained throughput, and a minimum inter-call
// delay keeps bursts from exceeding the configured rate even when the bucket
// has capacity.
type Gate struct {
	limiter     *rate.Limiter
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

func NewGate(perMinute int) *Gate {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Gate{
		limiter:     rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		minInterval: time.Minute / time.Duration(perMinute),
	}
}

// Wait blocks until a call may proceed or the context is cancelled.
func (g *Gate) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	g.mu.Lock()
	sleep := g.minInterval - time.Since(g.lastCall)
	if sleep > 0 {
		// Reserve the slot before sleeping so concurrent waiters space out
		// instead of waking together.
		g.lastCall = g.lastCall.Add(g.minInterval)
	} else {
		g.lastCall = time.Now()
		sleep = 0
	}
	g.mu.Unlock()

	if sleep > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil
}
