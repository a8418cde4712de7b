package loader

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hyperjump/miftah/internal/models"
)

// RetryPolicy bounds how often a retryable load is attempted. MaxAttempts
// counts the first try, so MaxAttempts-1 retries follow. The delay before
// attempt n+1 is BaseDelay * 2^(n-1).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// OnRetry, when set, is called before each wait.
	OnRetry func(err error, wait time.Duration)
}

// DefaultRetryPolicy is 4 attempts: the first try plus 3 retries waiting
// 1s, 2s, then 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, BaseDelay: time.Second}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = p.BaseDelay << 10
	exp.MaxElapsedTime = 0
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// LoadWithRetry calls fn until it succeeds, returns an error that is not a
// retryable LoadError, the policy runs out of attempts, or ctx is done.
func LoadWithRetry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var result T
	op := func() error {
		v, err := fn(ctx)
		if err != nil {
			if !models.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}
	var notify backoff.Notify
	if policy.OnRetry != nil {
		notify = policy.OnRetry
	}
	err := backoff.RetryNotify(op, policy.backOff(ctx), notify)
	return result, err
}
