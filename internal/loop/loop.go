// Package loop runs the fixed-period tasks of the testbed and supervises
// them at the process boundary.
package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dogmatiq/linger"
	"github.com/dogmatiq/linger/backoff"

	"dam-testbed/internal/field"
	"dam-testbed/internal/logging"
)

// DefaultBackoff is the retry strategy used by Supervise when none is given.
var DefaultBackoff backoff.Strategy = backoff.WithTransforms(
	backoff.Exponential(time.Second),
	linger.FullJitter,
	linger.Limiter(time.Second, 10*time.Second),
)

// Run calls fn once per period until ctx is canceled or fn fails.
// Cancellation is observed at the top of each iteration and while waiting;
// a tick in progress always runs to completion. Run returns nil on
// cancellation and fn's error otherwise.
func Run(ctx context.Context, period time.Duration, fn func(context.Context) error) error {
	if period <= 0 {
		return fmt.Errorf("loop period must be positive, got %s", period)
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// Supervisor restarts a loop after transient failures.
type Supervisor struct {
	// Name identifies the loop in logs.
	Name string
	// Strategy computes the delay between attempts. If nil, DefaultBackoff is used.
	Strategy backoff.Strategy
	// MaxRetries bounds consecutive failed attempts. Zero means retry forever.
	MaxRetries int
	// Reset, if non-nil, is called before each retry, e.g. to reconnect a
	// Modbus client.
	Reset func() error
	// HealthyAfter is how long an attempt must run before its failure no
	// longer counts against MaxRetries. Defaults to 30s.
	HealthyAfter time.Duration
}

// Supervise runs fn, retrying transient field errors with backoff. Any other
// error stops the loop and is returned. A nil return from fn means the loop
// stopped cleanly.
func (s Supervisor) Supervise(ctx context.Context, fn func(context.Context) error) error {
	log := logging.FromContext(ctx).With("loop", s.Name)
	strategy := s.Strategy
	if strategy == nil {
		strategy = DefaultBackoff
	}
	counter := backoff.Counter{Strategy: strategy}

	healthy := s.HealthyAfter
	if healthy <= 0 {
		healthy = 30 * time.Second
	}

	failures := 0
	for {
		start := time.Now()
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		if !field.IsTransient(err) {
			log.Error("loop stopped", "err", err)
			return fmt.Errorf("%s: %w", s.Name, err)
		}

		if time.Since(start) >= healthy {
			failures = 0
			counter.Reset()
		}
		failures++
		if s.MaxRetries > 0 && failures > s.MaxRetries {
			log.Error("giving up after retries", "retries", s.MaxRetries, "err", err)
			return fmt.Errorf("%s: retries exhausted: %w", s.Name, err)
		}
		log.Warn("transient failure, retrying", "attempt", failures, "err", err)

		if err := counter.Sleep(ctx, err); err != nil {
			return nil
		}
		if s.Reset != nil {
			if rerr := s.Reset(); rerr != nil {
				log.Warn("reset failed", "err", rerr)
			}
		}
	}
}
