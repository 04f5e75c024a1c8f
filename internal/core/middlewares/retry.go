package middlewares

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"gqlrelay/internal/core"
)

// AttemptKey is the metadata key holding the current attempt number (1-based)
const AttemptKey = "attempt"

// RetryConfig configures the Retry middleware
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts uint `mapstructure:"max_attempts"`
	// InitialBackoff is the initial delay between retries.
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64 `mapstructure:"backoff_factor"`
	// RetryIf determines if an error should be retried.
	RetryIf func(error) bool `mapstructure:"-"`
	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, wait time.Duration) `mapstructure:"-"`
}

// DefaultRetryConfig returns sensible defaults
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		RetryIf:        DefaultRetryIf,
	}
}

// DefaultRetryIf retries transport errors without a reply, 429 and 5xx replies.
// Application errors, context cancellation and foreign errors are final.
func DefaultRetryIf(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	reqErr, ok := core.AsRequestError(err)
	if !ok || reqErr.Kind != core.KindTransport {
		return false
	}
	if reqErr.Response == nil {
		return true
	}
	status := reqErr.Response.Status
	return status == http.StatusTooManyRequests || status >= 500
}

func (c RetryConfig) withDefaults() RetryConfig {
	defaults := DefaultRetryConfig()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = defaults.BackoffFactor
	}
	if c.RetryIf == nil {
		c.RetryIf = defaults.RetryIf
	}
	return c
}

// Retry re-invokes the rest of the chain with exponential backoff. The final
// error is returned exactly as the chain produced it.
func Retry(cfg RetryConfig) core.Middleware {
	cfg = cfg.withDefaults()

	return func(next core.NextFn) core.NextFn {
		return func(ctx context.Context, req *core.Request) (*core.Response, error) {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = cfg.InitialBackoff
			b.MaxInterval = cfg.MaxBackoff
			b.Multiplier = cfg.BackoffFactor

			attempt := 0
			operation := func() (*core.Response, error) {
				attempt++
				req.SetMetadata(AttemptKey, attempt)

				resp, err := next(ctx, req)
				if err != nil && !cfg.RetryIf(err) {
					return nil, backoff.Permanent(err)
				}
				return resp, err
			}

			notify := func(err error, wait time.Duration) {
				if cfg.OnRetry != nil {
					cfg.OnRetry(attempt, err, wait)
				}
			}

			resp, err := backoff.Retry(ctx, operation,
				backoff.WithBackOff(b),
				backoff.WithMaxTries(cfg.MaxAttempts),
				backoff.WithNotify(notify),
			)
			if err != nil {
				var permanent *backoff.PermanentError
				if errors.As(err, &permanent) {
					err = permanent.Unwrap()
				}
				return nil, err
			}
			return resp, nil
		}
	}
}
