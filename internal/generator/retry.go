package generator

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy describes how failed invocations are retried. Only errors
// accepted by RetryIf are retried; the delay doubles on each attempt.
type RetryPolicy struct {
	Attempts   uint
	BaseDelay  time.Duration
	Multiplier float64
	RetryIf    func(error) bool
}

// DefaultRetryPolicy retries context-too-large errors up to 3 attempts with
// 5s/10s backoff between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:   3,
		BaseDelay:  5 * time.Second,
		Multiplier: 2,
		RetryIf:    IsContextTooLarge,
	}
}

// delayType computes the exponential backoff delay for attempt n (0-based).
func (p RetryPolicy) delayType(n uint, _ error, _ *retry.Config) time.Duration {
	d := p.BaseDelay
	for i := uint(0); i < n; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	return d
}

// retrier applies a RetryPolicy around an inner Generator.
type retrier struct {
	inner  Generator
	policy RetryPolicy
}

// Retrying wraps g with the given retry policy.
func Retrying(g Generator, policy RetryPolicy) Generator {
	if policy.Attempts == 0 {
		policy = DefaultRetryPolicy()
	}
	if policy.Multiplier <= 0 {
		policy.Multiplier = 2
	}
	if policy.RetryIf == nil {
		policy.RetryIf = IsContextTooLarge
	}
	return &retrier{inner: g, policy: policy}
}

// Invoke runs the inner generator, retrying per the policy. Non-retryable
// errors abort immediately; after the attempt budget is exhausted the last
// error is returned.
func (r *retrier) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return retry.DoWithData(
		func() (string, error) {
			return r.inner.Invoke(ctx, systemPrompt, userPrompt)
		},
		retry.Context(ctx),
		retry.Attempts(r.policy.Attempts),
		retry.RetryIf(r.policy.RetryIf),
		retry.DelayType(r.policy.delayType),
		retry.LastErrorOnly(true),
	)
}
