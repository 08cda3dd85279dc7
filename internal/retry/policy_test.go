package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errFlaky = errors.New("flaky")
	errFatal = errors.New("fatal")
)

func classify(err error) Kind {
	if errors.Is(err, errFlaky) {
		return Transient
	}
	return Terminal
}

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Jitter:      0.5,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var waits []time.Duration
	p := fastPolicy(5)
	p.OnRetry = func(attempt int, err error, wait time.Duration) {
		waits = append(waits, wait)
	}

	res := p.Do(context.Background(), classify, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	if res.Kind != Success {
		t.Fatalf("expected success, got %s (%v)", res.Kind, res.Err)
	}
	if res.Attempts != 3 || calls != 3 {
		t.Errorf("expected 3 attempts, got %d (calls %d)", res.Attempts, calls)
	}
	if len(waits) != 2 {
		t.Errorf("expected 2 waits, got %d", len(waits))
	}
	if res.Err != nil {
		t.Errorf("expected nil error on success, got %v", res.Err)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	res := fastPolicy(4).Do(context.Background(), classify, func(ctx context.Context) error {
		calls++
		return errFlaky
	})
	if res.Kind != Transient {
		t.Errorf("expected transient, got %s", res.Kind)
	}
	if res.Attempts != 4 || calls != 4 {
		t.Errorf("expected 4 attempts, got %d", res.Attempts)
	}
	if !errors.Is(res.Err, errFlaky) {
		t.Errorf("expected last error, got %v", res.Err)
	}
}

func TestDo_TerminalIsNotRetried(t *testing.T) {
	calls := 0
	res := fastPolicy(5).Do(context.Background(), classify, func(ctx context.Context) error {
		calls++
		return errFatal
	})
	if res.Kind != Terminal || res.Attempts != 1 || calls != 1 {
		t.Errorf("expected one terminal attempt, got %s after %d", res.Kind, res.Attempts)
	}
}

func TestDo_AttemptTimeoutIsTransient(t *testing.T) {
	calls := 0
	p := fastPolicy(2)
	p.AttemptTimeout = 10 * time.Millisecond

	res := p.Do(context.Background(), classify, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if res.Kind != Success || res.Attempts != 2 {
		t.Errorf("expected success on second attempt, got %s after %d", res.Kind, res.Attempts)
	}
}

func TestDo_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	p.OnRetry = func(int, error, time.Duration) { cancel() }

	res := p.Do(ctx, classify, func(ctx context.Context) error { return errFlaky })
	if res.Kind != Canceled {
		t.Errorf("expected canceled, got %s", res.Kind)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
}

func TestDo_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := fastPolicy(3).Do(ctx, classify, func(ctx context.Context) error {
		t.Error("operation should not run")
		return nil
	})
	if res.Kind != Canceled || res.Attempts != 0 {
		t.Errorf("expected canceled with 0 attempts, got %s/%d", res.Kind, res.Attempts)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond}
	b := p.backOff()
	want := []time.Duration{10, 20, 40, 40}
	for i, w := range want {
		if got := b.NextBackOff(); got != w*time.Millisecond {
			t.Errorf("wait %d = %s, want %s", i, got, w*time.Millisecond)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("default policy invalid: %v", err)
	}
	bad := []Policy{
		{MaxAttempts: 0},
		{MaxAttempts: 1, Jitter: 2},
		{MaxAttempts: 1, BaseDelay: -time.Second},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("policy %d: expected error", i)
		}
	}
}
