package middlewares

import (
	"context"

	"gqlrelay/internal/core"
)

// URL fills in the request URL when the request carries none
func URL(u string) core.Middleware {
	return func(next core.NextFn) core.NextFn {
		return func(ctx context.Context, req *core.Request) (*core.Response, error) {
			if req.URL == "" {
				req.URL = u
			}
			return next(ctx, req)
		}
	}
}

// RouteMatcher picks an endpoint for a GraphQL request body
type RouteMatcher interface {
	Match(body []byte) (id string, url string, ok bool)
}

// RouteKey is the metadata key holding the matched route ID
const RouteKey = "route"

// Router fills in the request URL from the first matching route. Requests that
// already carry a URL, or match no route, pass through untouched.
func Router(matcher RouteMatcher) core.Middleware {
	return func(next core.NextFn) core.NextFn {
		return func(ctx context.Context, req *core.Request) (*core.Response, error) {
			if req.URL == "" {
				if id, u, ok := matcher.Match(req.Body); ok {
					req.URL = u
					req.SetMetadata(RouteKey, id)
				}
			}
			return next(ctx, req)
		}
	}
}
