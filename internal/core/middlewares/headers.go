package middlewares

import (
	"context"
	"net/http"
	"os"
	"strings"

	"gqlrelay/internal/core"
)

// HeaderPolicy defines how request headers are rewritten
type HeaderPolicy struct {
	// Set maps headers to force set (supports "env:VAR" syntax for env vars)
	Set map[string]string `mapstructure:"set"`
	// Remove lists headers to drop before sending
	Remove []string `mapstructure:"remove"`
}

// Headers applies policy to the request headers: Set first, then Remove
func Headers(policy HeaderPolicy) core.Middleware {
	return func(next core.NextFn) core.NextFn {
		return func(ctx context.Context, req *core.Request) (*core.Response, error) {
			if req.Header == nil {
				req.Header = make(http.Header)
			}
			for key, value := range policy.Set {
				if resolved := resolveValue(value); resolved != "" {
					req.Header.Set(key, resolved)
				}
			}
			for _, key := range policy.Remove {
				req.Header.Del(key)
			}
			return next(ctx, req)
		}
	}
}

// resolveValue expands "env:VAR" to the variable's value; other values are literal
func resolveValue(value string) string {
	if envVar, ok := strings.CutPrefix(value, "env:"); ok {
		return os.Getenv(envVar)
	}
	return value
}
