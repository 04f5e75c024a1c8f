package middlewares

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"gqlrelay/internal/core"
)

// ErrEmptyQuery is wrapped by Validate when the request has no query
var ErrEmptyQuery = errors.New("empty query")

// Validate parses the GraphQL document before it leaves the process. A document
// that does not parse fails as an application error and no network call is made.
func Validate() core.Middleware {
	return func(next core.NextFn) core.NextFn {
		return func(ctx context.Context, req *core.Request) (*core.Response, error) {
			query := req.Query()
			if strings.TrimSpace(query) == "" {
				return nil, &core.RequestError{Kind: core.KindApplication, Request: req, Err: ErrEmptyQuery}
			}

			if _, err := parser.ParseQuery(&ast.Source{Name: "request", Input: query}); err != nil {
				return nil, &core.RequestError{
					Kind:    core.KindApplication,
					Request: req,
					Err:     fmt.Errorf("invalid query: %w", err),
				}
			}

			return next(ctx, req)
		}
	}
}
