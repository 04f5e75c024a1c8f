package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Doer performs a single HTTP round trip. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor is the terminal link of the chain: it sends the request over the network
// and turns the reply into a Response
type Executor struct {
	client     Doer
	defaultURL string
	baseURL    string
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithClient sets the transport used for the network call
func WithClient(client Doer) ExecutorOption {
	return func(e *Executor) {
		e.client = client
	}
}

// WithDefaultURL replaces DefaultURL for requests that carry no URL
func WithDefaultURL(u string) ExecutorOption {
	return func(e *Executor) {
		if u != "" {
			e.defaultURL = u
		}
	}
}

// WithBaseURL resolves relative request URLs against base
func WithBaseURL(base string) ExecutorOption {
	return func(e *Executor) {
		e.baseURL = base
	}
}

// NewExecutor creates a new executor
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		defaultURL: DefaultURL,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = NewHTTPClient(60 * time.Second)
	}
	return e
}

// NewHTTPClient returns an http.Client whose transport is instrumented with OpenTelemetry
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Execute sends req once. A reply with status >= 400 is returned as a transport
// RequestError carrying the parsed Response.
func (e *Executor) Execute(ctx context.Context, req *Request) (*Response, error) {
	target, err := withQuery(e.ResolveURL(req.URL), req.Params)
	if err != nil {
		return nil, NewTransportError(req, nil, err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, NewTransportError(req, nil, fmt.Errorf("failed to create request: %w", err))
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, NewTransportError(req, nil, fmt.Errorf("failed to send request: %w", err))
	}

	resp, err := NewResponse(httpResp)
	if err != nil {
		return nil, NewTransportError(req, nil, err)
	}
	resp.URL = target

	if resp.Status >= 400 {
		return nil, NewTransportError(req, resp, nil)
	}

	return resp, nil
}

// ResolveURL returns the URL Execute would call for a request URL of raw
func (e *Executor) ResolveURL(raw string) string {
	target := raw
	if target == "" {
		target = e.defaultURL
	}
	if e.baseURL == "" {
		return target
	}
	if parsed, err := url.Parse(target); err == nil && parsed.IsAbs() {
		return target
	}
	return strings.TrimRight(e.baseURL, "/") + "/" + strings.TrimLeft(target, "/")
}

// withQuery merges params into the query string of target
func withQuery(target string, params url.Values) (string, error) {
	if len(params) == 0 {
		return target, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", target, err)
	}
	q := u.Query()
	for key, values := range params {
		q[key] = append([]string(nil), values...)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
