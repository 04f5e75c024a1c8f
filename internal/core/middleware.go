package core

import "context"

// NextFn sends a request to everything further down the chain.
type NextFn func(ctx context.Context, req *Request) (*Response, error)

// Middleware wraps the rest of the chain. It may change the request before calling
// next, skip next entirely, and inspect or replace the result on the way back.
type Middleware func(next NextFn) NextFn

// Compose folds middlewares into one. Compose(a, b, c)(t) is a(b(c(t))): a runs
// first on the way in and last on the way out. Nil entries are skipped.
func Compose(middlewares ...Middleware) Middleware {
	return func(next NextFn) NextFn {
		for i := len(middlewares) - 1; i >= 0; i-- {
			if middlewares[i] == nil {
				continue
			}
			next = middlewares[i](next)
		}
		return next
	}
}

// Handler is the object form of a middleware.
type Handler interface {
	Handle(ctx context.Context, req *Request, next NextFn) (*Response, error)
}

// FromHandler adapts a Handler into a Middleware.
func FromHandler(h Handler) Middleware {
	return func(next NextFn) NextFn {
		return func(ctx context.Context, req *Request) (*Response, error) {
			return h.Handle(ctx, req, next)
		}
	}
}

// Processor observes a request on the way in and its response on the way out.
type Processor interface {
	// Name returns the processor name
	Name() string
	// OnRequest is called before the request continues down the chain
	OnRequest(ctx context.Context, req *Request) error
	// OnResponse is called after a successful response comes back up the chain
	OnResponse(ctx context.Context, req *Request, resp *Response) error
}

// FromProcessor adapts a Processor into a Middleware. An OnRequest error stops the
// chain; errors from further down skip OnResponse.
func FromProcessor(p Processor) Middleware {
	return func(next NextFn) NextFn {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if err := p.OnRequest(ctx, req); err != nil {
				return nil, err
			}
			resp, err := next(ctx, req)
			if err != nil {
				return nil, err
			}
			if err := p.OnResponse(ctx, req, resp); err != nil {
				return nil, err
			}
			return resp, nil
		}
	}
}
