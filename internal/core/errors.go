package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrorKind classifies a RequestError.
type ErrorKind int

const (
	// KindTransport is an HTTP-level failure: status >= 400 or no reply at all.
	KindTransport ErrorKind = iota
	// KindApplication is a payload-level failure: no response, GraphQL errors, or no data.
	KindApplication
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// maxTextExcerpt bounds how much of a reply body ends up in an error message.
const maxTextExcerpt = 200

// RequestError is returned by the executor and by Dispatch. It always references the
// originating Request and, when one was built, the Response that triggered it.
type RequestError struct {
	Kind     ErrorKind
	Request  *Request
	Response *Response
	// Err is the underlying error (network failure, parse error), may be nil.
	Err error
}

// NewTransportError creates a transport-kind error.
func NewTransportError(req *Request, resp *Response, err error) *RequestError {
	return &RequestError{Kind: KindTransport, Request: req, Response: resp, Err: err}
}

// NewApplicationError creates an application-kind error.
func NewApplicationError(req *Request, resp *Response) *RequestError {
	return &RequestError{Kind: KindApplication, Request: req, Response: resp}
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gqlrelay: %s error", e.Kind)
	if e.Response != nil && e.Response.Status > 0 && e.Kind == KindTransport {
		fmt.Fprintf(&b, " (HTTP %d)", e.Response.Status)
	}
	if op := e.operation(); op != "" {
		fmt.Fprintf(&b, " in operation %s", op)
	}

	switch {
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	case e.Response == nil:
		b.WriteString(": empty response")
	case len(e.Response.Errors) > 0:
		fmt.Fprintf(&b, ": server responded with %d error(s):", len(e.Response.Errors))
		for i, gqlErr := range e.Response.Errors {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, gqlErr.Message)
			for _, loc := range gqlErr.Locations {
				fmt.Fprintf(&b, " (line %d, column %d)", loc.Line, loc.Column)
			}
		}
	case e.Kind == KindTransport:
		fmt.Fprintf(&b, ": %s", excerpt(e.Response.Text))
	case !e.Response.HasData():
		b.WriteString(": response has no data")
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status of the attached response, or 0.
func (e *RequestError) Status() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.Status
}

func (e *RequestError) operation() string {
	if e.Request == nil {
		return ""
	}
	return e.Request.OperationName()
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxTextExcerpt {
		cut := maxTextExcerpt
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}

// AsRequestError extracts a *RequestError from an error chain.
func AsRequestError(err error) (*RequestError, bool) {
	var e *RequestError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsTransportError checks if an error is a transport-kind RequestError.
func IsTransportError(err error) bool {
	e, ok := AsRequestError(err)
	return ok && e.Kind == KindTransport
}

// IsApplicationError checks if an error is an application-kind RequestError.
func IsApplicationError(err error) bool {
	e, ok := AsRequestError(err)
	return ok && e.Kind == KindApplication
}
