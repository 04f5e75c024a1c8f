package core

import (
	"context"
	"sync"
)

// Dispatch runs req through middlewares around terminal and validates the result.
// A nil response, GraphQL errors, or a missing data member become an application
// RequestError. Errors from the chain are returned unchanged.
func Dispatch(ctx context.Context, terminal NextFn, req *Request, middlewares ...Middleware) (*Response, error) {
	resp, err := Compose(middlewares...)(terminal)(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Errors) > 0 || !resp.HasData() {
		return nil, NewApplicationError(req, resp)
	}

	return resp, nil
}

// Pipeline holds an ordered middleware list and a terminal function
type Pipeline struct {
	terminal NextFn

	mu          sync.RWMutex
	middlewares []Middleware
}

// NewPipeline creates a new pipeline instance
func NewPipeline(terminal NextFn, middlewares ...Middleware) *Pipeline {
	p := &Pipeline{
		terminal:    terminal,
		middlewares: make([]Middleware, 0, len(middlewares)),
	}
	p.Use(middlewares...)
	return p
}

// Use appends middlewares; they run after the ones already registered
func (p *Pipeline) Use(middlewares ...Middleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middlewares = append(p.middlewares, middlewares...)
}

// AddProcessor appends a processor to the pipeline
func (p *Pipeline) AddProcessor(processor Processor) {
	p.Use(FromProcessor(processor))
}

// Middlewares returns a copy of the registered middlewares
func (p *Pipeline) Middlewares() []Middleware {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Middleware, len(p.middlewares))
	copy(out, p.middlewares)
	return out
}

// Dispatch runs req through a snapshot of the registered middlewares
func (p *Pipeline) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	return Dispatch(ctx, p.terminal, req, p.Middlewares()...)
}
