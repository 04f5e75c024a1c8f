package engine

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	"gqlrelay/internal/core"
	"gqlrelay/internal/core/middlewares"
	"gqlrelay/internal/core/security"
)

// urlConfig is the config of the "url" step
type urlConfig struct {
	URL string `mapstructure:"url"`
}

// maskConfig is the config of the "mask" step
type maskConfig struct {
	// Tags limits masking to the named scanner rules
	Tags []string `mapstructure:"tags"`
	// Rules are added to the built-in scanner rules
	Rules []ruleConfig `mapstructure:"rules"`
}

type ruleConfig struct {
	Name        string `mapstructure:"name"`
	Pattern     string `mapstructure:"pattern"`
	Replacement string `mapstructure:"replacement"`
}

// Build turns cfg into middlewares, in configured order. Unknown step types and
// invalid step configs are errors.
func Build(cfg *EngineConfig, log *zap.Logger) ([]core.Middleware, error) {
	if cfg == nil {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	var router *Router
	mws := make([]core.Middleware, 0, len(cfg.Middlewares))

	for i, step := range cfg.Middlewares {
		var mw core.Middleware

		switch step.Type {
		case StepTypeLogger:
			mw = middlewares.Logger(log.Named("request"))

		case StepTypeURL:
			var c urlConfig
			if err := decode(step.Config, &c); err != nil {
				return nil, stepError(i, step, err)
			}
			if c.URL == "" {
				return nil, stepError(i, step, fmt.Errorf("url is required"))
			}
			mw = middlewares.URL(c.URL)

		case StepTypeRouter:
			if router == nil {
				r, err := NewRouter(cfg.Routes)
				if err != nil {
					return nil, stepError(i, step, err)
				}
				router = r
			}
			mw = middlewares.Router(router)

		case StepTypeHeaders:
			var c middlewares.HeaderPolicy
			if err := decode(step.Config, &c); err != nil {
				return nil, stepError(i, step, err)
			}
			mw = middlewares.Headers(c)

		case StepTypeAuth:
			var c middlewares.AuthConfig
			if err := decode(step.Config, &c); err != nil {
				return nil, stepError(i, step, err)
			}
			switch c.Strategy {
			case "", middlewares.AuthStrategyBearer, middlewares.AuthStrategyHeader, middlewares.AuthStrategyQuery:
			default:
				return nil, stepError(i, step, fmt.Errorf("unknown auth strategy %q", c.Strategy))
			}
			mw = middlewares.Auth(c)

		case StepTypeValidate:
			mw = middlewares.Validate()

		case StepTypeRetry:
			c := middlewares.DefaultRetryConfig()
			if err := decode(step.Config, &c); err != nil {
				return nil, stepError(i, step, err)
			}
			retryLog := log.Named("retry")
			c.OnRetry = func(attempt int, err error, wait time.Duration) {
				retryLog.Warn("retrying request",
					zap.Int("attempt", attempt),
					zap.Duration("wait", wait),
					zap.Error(err),
				)
			}
			mw = middlewares.Retry(c)

		case StepTypeMask:
			var c maskConfig
			if err := decode(step.Config, &c); err != nil {
				return nil, stepError(i, step, err)
			}
			scanner := security.NewScanner()
			for _, rule := range c.Rules {
				if err := scanner.AddRule(rule.Name, rule.Pattern, rule.Replacement); err != nil {
					return nil, stepError(i, step, fmt.Errorf("rule %s: %w", rule.Name, err))
				}
			}
			mw = middlewares.Mask(scanner, c.Tags)

		case StepTypeTracing:
			mw = middlewares.Tracing(nil)

		case StepTypeTiming:
			mw = middlewares.Timing()

		default:
			return nil, fmt.Errorf("middleware %d: unknown type %q", i, step.Type)
		}

		log.Debug("middleware configured", zap.Int("index", i), zap.String("type", step.Type))
		mws = append(mws, mw)
	}

	return mws, nil
}

// RequestBudget returns the worst-case time one dispatch can take when every
// attempt runs for attemptTimeout, counting retry steps and their backoff.
// A non-positive attemptTimeout means unbounded and yields 0.
func RequestBudget(cfg *EngineConfig, attemptTimeout time.Duration) (time.Duration, error) {
	if attemptTimeout <= 0 {
		return 0, nil
	}
	budget := attemptTimeout
	if cfg == nil {
		return budget, nil
	}

	// innermost retry step first
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		step := cfg.Middlewares[i]
		if step.Type != StepTypeRetry {
			continue
		}
		c := middlewares.DefaultRetryConfig()
		if err := decode(step.Config, &c); err != nil {
			return 0, stepError(i, step, err)
		}
		defaults := middlewares.DefaultRetryConfig()
		if c.MaxAttempts == 0 {
			c.MaxAttempts = defaults.MaxAttempts
		}
		if c.BackoffFactor <= 0 {
			c.BackoffFactor = defaults.BackoffFactor
		}

		total := time.Duration(c.MaxAttempts) * budget
		wait := c.InitialBackoff
		for attempt := uint(1); attempt < c.MaxAttempts; attempt++ {
			if c.MaxBackoff > 0 && wait > c.MaxBackoff {
				wait = c.MaxBackoff
			}
			// backoff is randomized by up to half the interval
			total += wait + wait/2
			wait = time.Duration(float64(wait) * c.BackoffFactor)
		}
		budget = total
	}
	return budget, nil
}

func decode(input map[string]interface{}, out interface{}) error {
	if len(input) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func stepError(i int, step Step, err error) error {
	return fmt.Errorf("middleware %d (%s): %w", i, step.Type, err)
}
