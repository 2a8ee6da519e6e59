// Package retry runs an operation again when it fails with a transient
// error, waiting between attempts, up to a fixed number of attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned when every attempt failed with a retryable error
// or the context ended while waiting for the next one. The last attempt's
// error is wrapped alongside it.
var ErrExhausted = errors.New("retry budget exhausted")

// SleepFunc waits for d or until ctx is done. It returns an error only when
// ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes a bounded retry loop. The zero value runs once.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is the wait before the second attempt.
	Backoff time.Duration
	// Multiplier grows the wait after every failed attempt. Values <= 1
	// keep it fixed.
	Multiplier float64
	// MaxBackoff caps the wait when positive.
	MaxBackoff time.Duration
	// Sleep replaces the real timer when set.
	Sleep SleepFunc
	// Retryable decides whether an error warrants another attempt. When nil
	// every error is retried.
	Retryable func(error) bool
}

// Fixed returns a policy making attempts tries with a constant wait.
func Fixed(attempts int, wait time.Duration) Policy {
	return Policy{Attempts: attempts, Backoff: wait}
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. fn receives the 1-based attempt number.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)

	var (
		attempt int
		fatal   bool
	)
	op := func() error {
		attempt++
		err := fn(attempt)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			fatal = true
			return backoff.Permanent(err)
		}
		return err
	}

	var timer backoff.Timer // nil selects the library's real timer
	if p.Sleep != nil {
		timer = &sleepTimer{ctx: ctx, sleep: p.Sleep, c: make(chan time.Time, 1)}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.schedule(), uint64(attempts-1)), ctx)
	err := backoff.RetryNotifyWithTimer(op, b, nil, timer)
	if err == nil || fatal {
		return err
	}
	// err is the last attempt's error, or ctx.Err() when the wait was cut short
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
}

// schedule builds the wait sequence: constant, or exponential without jitter.
func (p Policy) schedule() backoff.BackOff {
	if p.Multiplier <= 1 {
		return backoff.NewConstantBackOff(p.Backoff)
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Backoff
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.MaxInterval = time.Duration(math.MaxInt64)
	if p.MaxBackoff > 0 {
		eb.MaxInterval = p.MaxBackoff
	}
	return eb
}

// sleepTimer adapts a SleepFunc to backoff.Timer. Start blocks for the
// wait and then makes C ready, unless ctx ended first.
type sleepTimer struct {
	ctx   context.Context
	sleep SleepFunc
	c     chan time.Time
}

func (t *sleepTimer) Start(d time.Duration) {
	if err := t.sleep(t.ctx, d); err != nil && t.ctx.Err() != nil {
		return
	}
	t.c <- time.Now()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time { return t.c }

// NoSleep returns immediately unless ctx is already done. Tests use it to
// run retry loops without waiting.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
