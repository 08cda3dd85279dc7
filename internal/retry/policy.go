// Package retry runs an operation under a bounded retry policy and reports
// a tagged result instead of an error chain.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Kind tags the final state of an operation run under a Policy.
type Kind int

const (
	// Success means the last attempt returned nil.
	Success Kind = iota
	// Transient means every attempt failed with a retryable error.
	Transient
	// Terminal means an attempt failed with a non-retryable error.
	Terminal
	// Canceled means the caller's context ended before an attempt succeeded.
	Canceled
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Transient:
		return "transient"
	case Terminal:
		return "terminal"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of Policy.Do.
type Result struct {
	Kind     Kind
	Attempts int
	Err      error
}

// Classifier decides whether an attempt error may be retried. It returns
// Transient or Terminal.
type Classifier func(error) Kind

// Policy bounds how an operation is retried.
type Policy struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; later waits double.
	BaseDelay time.Duration
	// MaxDelay caps a single wait.
	MaxDelay time.Duration
	// Jitter randomizes each wait by ±Jitter of its value (0 to 1).
	Jitter float64
	// AttemptTimeout bounds one attempt. Zero means no per-attempt bound.
	AttemptTimeout time.Duration
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		Jitter:         0.5,
		AttemptTimeout: 5 * time.Minute,
	}
}

// Validate checks that the policy is usable.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 || p.AttemptTimeout < 0 {
		return fmt.Errorf("retry delays and timeouts must not be negative")
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return fmt.Errorf("retry jitter must be between 0 and 1, got %g", p.Jitter)
	}
	return nil
}

func (p Policy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.RandomizationFactor = p.Jitter
	b.Multiplier = 2
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Do runs op until it succeeds, fails terminally, exhausts MaxAttempts or
// ctx ends. Each attempt receives its own context bounded by AttemptTimeout;
// an attempt that times out while ctx is still live is transient.
func (p Policy) Do(ctx context.Context, classify Classifier, op func(context.Context) error) Result {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	b := p.backOff()

	var res Result
	for res.Attempts < p.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return Result{Kind: Canceled, Attempts: res.Attempts, Err: err}
		}

		res.Attempts++
		err := p.attempt(ctx, op)
		if err == nil {
			return Result{Kind: Success, Attempts: res.Attempts}
		}
		if ctx.Err() != nil {
			return Result{Kind: Canceled, Attempts: res.Attempts, Err: err}
		}

		res.Err = err
		res.Kind = classifyAttempt(classify, err)
		if res.Kind != Transient || res.Attempts == p.MaxAttempts {
			return res
		}

		wait := b.NextBackOff()
		if p.OnRetry != nil {
			p.OnRetry(res.Attempts, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Kind: Canceled, Attempts: res.Attempts, Err: err}
		case <-timer.C:
		}
	}
	return res
}

func (p Policy) attempt(ctx context.Context, op func(context.Context) error) error {
	if p.AttemptTimeout <= 0 {
		return op(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return op(actx)
}

func classifyAttempt(classify Classifier, err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	if classify == nil {
		return Terminal
	}
	if k := classify(err); k == Transient {
		return Transient
	}
	return Terminal
}
