package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"

	"gqlrelay/internal/core"
)

// AuthStrategy constants
const (
	AuthStrategyBearer = "bearer" // Authorization: Bearer <token>
	AuthStrategyHeader = "header" // Custom header with token value
	AuthStrategyQuery  = "query"  // Query parameter with token value
)

// ErrEmptyToken is returned when no token is available and empty tokens are not allowed
var ErrEmptyToken = errors.New("auth: empty token")

// AuthConfig configures the Auth middleware
type AuthConfig struct {
	// Strategy is "bearer", "header" or "query" (default bearer)
	Strategy string `mapstructure:"strategy"`
	// TokenEnv is the environment variable to read the token from
	TokenEnv string `mapstructure:"token_env"`
	// Token is a literal token, used when TokenEnv is empty or unset
	Token string `mapstructure:"token"`
	// HeaderName is the header for the "header" strategy (default Authorization)
	HeaderName string `mapstructure:"header_name"`
	// QueryParam is the parameter for the "query" strategy (default api_key)
	QueryParam string `mapstructure:"query_param"`
	// AllowEmpty sends the request unauthenticated instead of failing
	AllowEmpty bool `mapstructure:"allow_empty"`
}

func (c AuthConfig) token() string {
	if c.TokenEnv != "" {
		if token := os.Getenv(c.TokenEnv); token != "" {
			return token
		}
	}
	return c.Token
}

// Auth authenticates the request with a token. The token is looked up on every
// call so rotated environment values are picked up.
func Auth(cfg AuthConfig) core.Middleware {
	return func(next core.NextFn) core.NextFn {
		return func(ctx context.Context, req *core.Request) (*core.Response, error) {
			token := cfg.token()
			if token == "" {
				if cfg.AllowEmpty {
					return next(ctx, req)
				}
				return nil, ErrEmptyToken
			}

			if req.Header == nil {
				req.Header = make(http.Header)
			}

			switch cfg.Strategy {
			case AuthStrategyHeader:
				headerName := cfg.HeaderName
				if headerName == "" {
					headerName = "Authorization"
				}
				req.Header.Set(headerName, token)
			case AuthStrategyQuery:
				param := cfg.QueryParam
				if param == "" {
					param = "api_key"
				}
				// the executor appends it to the resolved URL
				if req.Params == nil {
					req.Params = make(url.Values)
				}
				req.Params.Set(param, token)
			default:
				req.Header.Set("Authorization", "Bearer "+token)
			}

			return next(ctx, req)
		}
	}
}
