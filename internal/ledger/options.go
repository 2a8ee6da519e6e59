package ledger

import (
	"time"

	"wallet_ledger/internal/retry"

	"github.com/shopspring/decimal"
)

// Option adjusts a single Credit or Debit call.
type Option func(*callOptions)

type callOptions struct {
	minBalance decimal.Decimal
	policy     retry.Policy
}

// WithMinBalance overrides the floor for one call.
func WithMinBalance(floor decimal.Decimal) Option {
	return func(o *callOptions) { o.minBalance = floor }
}

// WithRetries sets the total number of attempts made under contention.
func WithRetries(attempts int) Option {
	return func(o *callOptions) { o.policy.Attempts = attempts }
}

// WithBackoff sets the wait between attempts.
func WithBackoff(d time.Duration) Option {
	return func(o *callOptions) { o.policy.Backoff = d }
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(o *callOptions) { o.policy.Sleep = sleep }
}

func (e *Engine) options(opts []Option) callOptions {
	o := callOptions{minBalance: e.cfg.MinBalance, policy: e.cfg.Retry}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
