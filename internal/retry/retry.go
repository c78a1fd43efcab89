package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
)

// Default policy values used when neither the caller nor the chain
// registry provides tuning.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
)

// Policy configures one retry sequence.
type Policy struct {
	// MaxRetries is the number of re-attempts after the initial one, so a
	// sequence makes at most MaxRetries+1 calls.
	MaxRetries int

	// BaseDelay is the wait before the first re-attempt; each subsequent
	// wait doubles.
	BaseDelay time.Duration

	// MaxDelay caps the backoff wait. Zero means uncapped.
	MaxDelay time.Duration

	// Timeout bounds the entire retry sequence including backoff waits.
	// Zero means unbounded.
	Timeout time.Duration
}

// DefaultPolicy returns the fixed fallback policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// Hooks are optional observability callbacks. They return nothing and are
// given nothing mutable, so they cannot influence control flow.
type Hooks struct {
	// OnRetry fires before each backoff wait.
	OnRetry func(attempt, maxRetries int, delay time.Duration, err error)

	// OnError fires after every failed attempt, including the last.
	OnError func(err error, attempt, maxRetries int)
}

// Options bundles a policy with hooks and an optional caller override for
// classification.
type Options struct {
	Policy Policy
	Hooks  Hooks

	// NonRetryable, when set, marks additional errors as non-retryable on
	// top of the built-in classification.
	NonRetryable func(error) bool
}

// TimeoutError is returned when a retry sequence exceeds its Timeout. It is
// deliberately distinct from any error the operation itself could produce.
type TimeoutError struct {
	After time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %dms", e.After.Milliseconds())
}

// BackoffDelay returns min(base << attempt, max) for attempt >= 0. A max of
// zero leaves the delay uncapped; negative attempts clamp to the base.
func BackoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 2^attempt overflows a Duration well before attempt reaches 63.
	if attempt > 40 {
		attempt = 40
	}
	delay := base * time.Duration(uint64(1)<<uint(attempt))
	if delay < base {
		delay = base
	}
	if max > 0 && delay > max {
		delay = max
	}
	return delay
}

// Do runs op with exponential backoff. Attempt 0 runs immediately; a
// non-retryable failure propagates at once with no further attempts; a
// retryable one waits BackoffDelay and re-attempts, up to
// Policy.MaxRetries additional times, after which the last error
// propagates. Backoff waits abort when ctx is cancelled.
func Do(ctx context.Context, op func(context.Context) error, opts Options) error {
	maxRetries := opts.Policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	base := opts.Policy.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if opts.Hooks.OnError != nil {
			opts.Hooks.OnError(lastErr, attempt, maxRetries)
		}

		if opts.NonRetryable != nil && opts.NonRetryable(lastErr) {
			return lastErr
		}
		if Classify(lastErr) != ClassRetryable {
			return lastErr
		}
		if attempt >= maxRetries {
			return lastErr
		}

		delay := BackoffDelay(attempt, base, opts.Policy.MaxDelay)
		if opts.Hooks.OnRetry != nil {
			opts.Hooks.OnRetry(attempt+1, maxRetries, delay, lastErr)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DoWithTimeout races the entire retry sequence, backoff waits included,
// against Options.Policy.Timeout. On expiry it returns a *TimeoutError.
func DoWithTimeout(ctx context.Context, op func(context.Context) error, opts Options) error {
	timeout := opts.Policy.Timeout
	if timeout <= 0 {
		return Do(ctx, op, opts)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := Do(timeoutCtx, op, opts)
	if err == nil {
		return nil
	}
	// Only report a timeout when our deadline fired, not when the parent
	// context was cancelled for its own reasons.
	if timeoutCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return &TimeoutError{After: timeout}
	}
	return err
}

// ChainPolicy resolves the effective policy for a chain. Fallback fields
// (an engine-wide configured policy; zero fields take the fixed defaults)
// apply first, then the registry's per-chain timeout settings override
// them.
func ChainPolicy(registry *chains.Registry, id chains.ChainID, fallback Policy) Policy {
	policy := DefaultPolicy()
	if fallback.MaxRetries > 0 {
		policy.MaxRetries = fallback.MaxRetries
	}
	if fallback.BaseDelay > 0 {
		policy.BaseDelay = fallback.BaseDelay
	}
	if fallback.MaxDelay > 0 {
		policy.MaxDelay = fallback.MaxDelay
	}
	if fallback.Timeout > 0 {
		policy.Timeout = fallback.Timeout
	}
	if ts, ok := registry.TimeoutSettings(id); ok {
		if ts.MaxRetries > 0 {
			policy.MaxRetries = ts.MaxRetries
		}
		if ts.BaseDelayMs > 0 {
			policy.BaseDelay = time.Duration(ts.BaseDelayMs) * time.Millisecond
		}
		if ts.MaxDelayMs > 0 {
			policy.MaxDelay = time.Duration(ts.MaxDelayMs) * time.Millisecond
		}
	}
	return policy
}

// ForChain runs op with a policy sourced from the chain registry's timeout
// settings, falling back to DefaultPolicy when the registry has nothing
// configured. Fields already set in overrides win over both.
func ForChain(ctx context.Context, op func(context.Context) error, registry *chains.Registry, id chains.ChainID, overrides Options) error {
	policy := ChainPolicy(registry, id, Policy{})

	if overrides.Policy.MaxRetries > 0 {
		policy.MaxRetries = overrides.Policy.MaxRetries
	}
	if overrides.Policy.BaseDelay > 0 {
		policy.BaseDelay = overrides.Policy.BaseDelay
	}
	if overrides.Policy.MaxDelay > 0 {
		policy.MaxDelay = overrides.Policy.MaxDelay
	}
	if overrides.Policy.Timeout > 0 {
		policy.Timeout = overrides.Policy.Timeout
	}

	opts := Options{
		Policy:       policy,
		Hooks:        overrides.Hooks,
		NonRetryable: overrides.NonRetryable,
	}
	return DoWithTimeout(ctx, op, opts)
}
