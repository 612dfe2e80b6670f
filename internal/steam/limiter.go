package steam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// DefaultCallInterval is the minimum spacing between two Steam calls.
const DefaultCallInterval = 3 * time.Second

// Limiter spaces outbound calls at least interval apart.
//
// It is a token bucket with a burst of one: the first call goes through
// immediately and every later call waits until interval has passed since the
// slot before it. Time comes from the injected clock, so tests drive it with
// clockwork.NewFakeClock.
//
// rate.Limiter converts its delay through float seconds and can come back a
// nanosecond short, so Wait also measures the gap from the last granted slot
// and waits for whichever is longer.
//
// CONCURRENCY:
// Slots are reserved under mu before waiting, so two goroutines can never
// claim the same slot.
type Limiter struct {
	limiter  *rate.Limiter
	clock    clockwork.Clock
	interval time.Duration

	mu   sync.Mutex
	last time.Time // start of the last granted slot, guarded by mu
}

// NewLimiter returns a Limiter for the given interval. An interval of zero
// or less disables spacing.
func NewLimiter(interval time.Duration, clock clockwork.Clock) *Limiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Limiter{
		limiter:  rate.NewLimiter(limit, 1),
		clock:    clock,
		interval: interval,
	}
}

// Wait blocks until the caller may issue its call or ctx is done. A cancelled
// wait gives its slot back.
func (l *Limiter) Wait(ctx context.Context) error {
	now := l.clock.Now()
	r, delay, prev, err := l.reserve(now)
	if err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}

	select {
	case <-l.clock.After(delay):
		return nil
	case <-ctx.Done():
		r.CancelAt(l.clock.Now())
		l.mu.Lock()
		if l.last.Equal(now.Add(delay)) {
			l.last = prev
		}
		l.mu.Unlock()
		return ctx.Err()
	}
}

// reserve claims the next slot and returns how long to wait for it, along
// with the slot it replaced as last.
func (l *Limiter) reserve(now time.Time) (*rate.Reservation, time.Duration, time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return nil, 0, time.Time{}, fmt.Errorf("steam: limiter cannot grant a call")
	}

	delay := r.DelayFrom(now)
	if l.interval > 0 && !l.last.IsZero() {
		delay = max(delay, l.interval-now.Sub(l.last))
	}

	prev := l.last
	l.last = now.Add(max(delay, 0))
	return r, delay, prev, nil
}
