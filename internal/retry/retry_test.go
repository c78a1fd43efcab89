package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
)

// fastPolicy keeps backoff waits negligible so tests run quickly.
func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 100 * time.Millisecond
	max := 1 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second}, // capped
		{10, 1 * time.Second},
		{-1, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := BackoffDelay(tt.attempt, base, max); got != tt.want {
			t.Errorf("BackoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffDelay_UncappedAndOverflowSafe(t *testing.T) {
	if got := BackoffDelay(3, time.Second, 0); got != 8*time.Second {
		t.Errorf("uncapped BackoffDelay(3) = %v, want 8s", got)
	}
	// Very large attempts must not overflow into a negative duration.
	if got := BackoffDelay(1000, time.Second, time.Minute); got != time.Minute {
		t.Errorf("BackoffDelay(1000) = %v, want 1m", got)
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, Options{Policy: fastPolicy(3)})
	if err != nil {
		t.Fatalf("Do = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
}

func TestDo_RetryableExhaustsBudget(t *testing.T) {
	calls := 0
	opErr := errors.New("connection refused")
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return opErr
	}, Options{Policy: fastPolicy(3)})

	if !errors.Is(err, opErr) {
		t.Fatalf("Do = %v, want the operation error", err)
	}
	// maxRetries re-attempts after the initial call.
	if calls != 4 {
		t.Errorf("operation called %d times, want 4", calls)
	}
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("user rejected transaction")
	}, Options{Policy: fastPolicy(3)})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want exactly 1", calls)
	}
}

func TestDo_UnknownErrorsAreNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("some novel failure")
	}, Options{Policy: fastPolicy(3)})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want exactly 1", calls)
	}
}

func TestDo_RecoversMidSequence(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("network error")
		}
		return nil
	}, Options{Policy: fastPolicy(5)})

	if err != nil {
		t.Fatalf("Do = %v, want nil after recovery", err)
	}
	if calls != 3 {
		t.Errorf("operation called %d times, want 3", calls)
	}
}

func TestDo_CallerNonRetryableOverride(t *testing.T) {
	calls := 0
	opErr := errors.New("network error") // retryable by classification
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return opErr
	}, Options{
		Policy:       fastPolicy(3),
		NonRetryable: func(err error) bool { return errors.Is(err, opErr) },
	})

	if !errors.Is(err, opErr) {
		t.Fatalf("Do = %v, want the operation error", err)
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
}

func TestDo_HooksObserveWithoutAlteringFlow(t *testing.T) {
	var retries, failures int
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("timeout")
	}, Options{
		Policy: fastPolicy(2),
		Hooks: Hooks{
			OnRetry: func(attempt, maxRetries int, delay time.Duration, err error) { retries++ },
			OnError: func(err error, attempt, maxRetries int) { failures++ },
		},
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("operation called %d times, want 3", calls)
	}
	if retries != 2 {
		t.Errorf("OnRetry fired %d times, want 2", retries)
	}
	if failures != 3 {
		t.Errorf("OnError fired %d times, want 3", failures)
	}
}

func TestDo_ContextCancellationAbortsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("network error")
	}, Options{Policy: Policy{MaxRetries: 3, BaseDelay: 10 * time.Second}})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
}

func TestDoWithTimeout_BoundsEntireSequence(t *testing.T) {
	start := time.Now()
	err := DoWithTimeout(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return errors.New("network error")
	}, Options{Policy: Policy{
		MaxRetries: 10,
		BaseDelay:  time.Millisecond,
		Timeout:    50 * time.Millisecond,
	}})

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("DoWithTimeout = %v, want *TimeoutError", err)
	}
	if got := timeoutErr.Error(); got != "operation timed out after 50ms" {
		t.Errorf("TimeoutError message = %q", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("sequence ran %v, should stop near the 50ms budget", elapsed)
	}
}

func TestDoWithTimeout_ParentCancellationIsNotATimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := DoWithTimeout(ctx, func(context.Context) error {
		return errors.New("never reached")
	}, Options{Policy: Policy{MaxRetries: 1, BaseDelay: time.Millisecond, Timeout: time.Minute}})

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		t.Fatal("parent cancellation must not be reported as a timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("DoWithTimeout = %v, want context.Canceled", err)
	}
}

func TestForChain_UsesRegistryTuning(t *testing.T) {
	registry, err := chains.NewRegistry([]chains.ChainDescriptor{{
		ChainID:         1,
		Name:            "Ethereum",
		ChainType:       chains.ChainTypeEVM,
		TimeoutSettings: chains.TimeoutSettings{MaxRetries: 1, BaseDelayMs: 1, MaxDelayMs: 5},
	}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	calls := 0
	err = ForChain(context.Background(), func(context.Context) error {
		calls++
		return errors.New("network error")
	}, registry, chains.ID(1), Options{})

	if err == nil {
		t.Fatal("expected error")
	}
	// Registry says one re-attempt, so two calls total.
	if calls != 2 {
		t.Errorf("operation called %d times, want 2", calls)
	}
}

func TestForChain_OverridesWinOverRegistry(t *testing.T) {
	registry, err := chains.NewRegistry([]chains.ChainDescriptor{{
		ChainID:         1,
		Name:            "Ethereum",
		ChainType:       chains.ChainTypeEVM,
		TimeoutSettings: chains.TimeoutSettings{MaxRetries: 5, BaseDelayMs: 1, MaxDelayMs: 5},
	}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	calls := 0
	err = ForChain(context.Background(), func(context.Context) error {
		calls++
		return errors.New("network error")
	}, registry, chains.ID(1), Options{Policy: Policy{MaxRetries: 1}})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("operation called %d times, want 2", calls)
	}
}

func TestForChain_UnknownChainFallsBackToDefaults(t *testing.T) {
	registry, err := chains.NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	calls := 0
	err = ForChain(context.Background(), func(context.Context) error {
		calls++
		return errors.New("user rejected transaction")
	}, registry, chains.ID(99), Options{})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-retryable should run once, got %d calls", calls)
	}
}

func TestChainPolicy(t *testing.T) {
	registry, err := chains.NewRegistry([]chains.ChainDescriptor{
		{
			ChainID:         1,
			Name:            "Ethereum",
			ChainType:       chains.ChainTypeEVM,
			TimeoutSettings: chains.TimeoutSettings{MaxRetries: 7, BaseDelayMs: 250},
		},
		{
			ChainID:   137,
			Name:      "Polygon",
			ChainType: chains.ChainTypeEVM,
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	fallback := Policy{MaxRetries: 2, BaseDelay: 10 * time.Millisecond, Timeout: time.Second}

	t.Run("fallback fills in where the chain has no settings", func(t *testing.T) {
		got := ChainPolicy(registry, chains.ID(137), fallback)
		if got.MaxRetries != 2 || got.BaseDelay != 10*time.Millisecond || got.Timeout != time.Second {
			t.Errorf("ChainPolicy = %+v, want fallback values", got)
		}
		// Unset fallback fields keep the fixed defaults.
		if got.MaxDelay != DefaultMaxDelay {
			t.Errorf("MaxDelay = %v, want %v", got.MaxDelay, DefaultMaxDelay)
		}
	})

	t.Run("chain settings win over the fallback", func(t *testing.T) {
		got := ChainPolicy(registry, chains.ID(1), fallback)
		if got.MaxRetries != 7 || got.BaseDelay != 250*time.Millisecond {
			t.Errorf("ChainPolicy = %+v, want registry tuning", got)
		}
		// The registry carries no timeout; the fallback's still applies.
		if got.Timeout != time.Second {
			t.Errorf("Timeout = %v, want 1s", got.Timeout)
		}
	})

	t.Run("zero fallback on an unknown chain yields the defaults", func(t *testing.T) {
		got := ChainPolicy(registry, chains.ID(9999), Policy{})
		want := DefaultPolicy()
		if got != want {
			t.Errorf("ChainPolicy = %+v, want %+v", got, want)
		}
	})
}
