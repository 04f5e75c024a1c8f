package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tidwall/gjson"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"gqlrelay/internal/core"
)

// MaxBodyBytes limits the size of a proxied request body
const MaxBodyBytes = 10 << 20

// Dispatcher runs a request through a middleware chain; *core.Pipeline implements it
type Dispatcher interface {
	Dispatch(ctx context.Context, req *core.Request) (*core.Response, error)
}

// Proxy accepts GraphQL requests over HTTP and dispatches them
type Proxy struct {
	dispatcher     Dispatcher
	forwardHeaders []string
	log            *zap.Logger
}

// NewProxy creates a Proxy. forwardHeaders are copied from the client request.
func NewProxy(dispatcher Dispatcher, forwardHeaders []string, log *zap.Logger) *Proxy {
	if log == nil {
		log = zap.NewNop()
	}
	return &Proxy{
		dispatcher:     dispatcher,
		forwardHeaders: forwardHeaders,
		log:            log,
	}
}

// NewRouter builds the HTTP routes of the proxy
func NewRouter(p *Proxy, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(AccessLog(log.Named("http")))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "gqlrelay")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/graphql", p.ServeGraphQL)

	return r
}

// ServeGraphQL dispatches one GraphQL request and writes the outcome.
// Transport failures keep the upstream status (502 without one), application
// failures are answered 200 with the upstream errors, or 400 when the request
// was rejected before it was sent.
func (p *Proxy) ServeGraphQL(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrors(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeErrors(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if !gjson.ValidBytes(body) || !gjson.GetBytes(body, "query").Exists() {
		writeErrors(w, http.StatusBadRequest, "request body must be a JSON object with a query")
		return
	}

	req := core.NewRawRequest(body)
	if id := middleware.GetReqID(r.Context()); id != "" {
		req.SetMetadata("http_request_id", id)
	}
	for _, name := range p.forwardHeaders {
		if values := r.Header.Values(name); len(values) > 0 {
			req.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
		}
	}

	resp, err := p.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		p.writeError(w, req, err)
		return
	}
	writeResponse(w, http.StatusOK, resp)
}

func (p *Proxy) writeError(w http.ResponseWriter, req *core.Request, err error) {
	reqErr, ok := core.AsRequestError(err)
	if !ok {
		p.log.Error("request aborted", zap.String("request_id", req.ID), zap.Error(err))
		writeErrors(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch reqErr.Kind {
	case core.KindTransport:
		status := reqErr.Status()
		if status == 0 {
			status = http.StatusBadGateway
		}
		writeErrors(w, status, reqErr.Error())
	default:
		if reqErr.Response != nil {
			writeResponse(w, http.StatusOK, reqErr.Response)
			return
		}
		writeErrors(w, http.StatusBadRequest, reqErr.Error())
	}
}

func writeResponse(w http.ResponseWriter, status int, resp *core.Response) {
	out, err := resp.JSON()
	if err != nil {
		writeErrors(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func writeErrors(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"errors": gqlerror.List{{Message: message}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	out, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}
