package core

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// recordingDoer captures outgoing requests and replies with a fixed body
type recordingDoer struct {
	urls   []string
	status int
	body   string
	err    error
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.urls = append(d.urls, req.URL.String())
	if d.err != nil {
		return nil, d.err
	}
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Request:    req,
	}, nil
}

func TestExecutorURLDefaulting(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		wantURL string
	}{
		{"no url uses default endpoint", "", "/graphql"},
		{"custom url is used as-is", "/custom", "/custom"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doer := &recordingDoer{body: `{"data":{}}`}
			exec := NewExecutor(WithClient(doer))

			req := NewRawRequest([]byte(`{"query":"{a}"}`))
			req.URL = tc.url

			if _, err := exec.Execute(context.Background(), req); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if len(doer.urls) != 1 {
				t.Fatalf("Expected exactly 1 transport call, got %d", len(doer.urls))
			}
			if doer.urls[0] != tc.wantURL {
				t.Errorf("Expected call against %q, got %q", tc.wantURL, doer.urls[0])
			}
			if req.URL != tc.url {
				t.Errorf("Execute should not rewrite the request URL, got %q", req.URL)
			}
		})
	}
}

func TestExecutorAppendsQueryParams(t *testing.T) {
	testCases := []struct {
		name    string
		opts    []ExecutorOption
		url     string
		wantURL string
	}{
		{"default endpoint", nil, "", "/graphql?api_key=tok"},
		{"configured endpoint keeps its params", []ExecutorOption{WithDefaultURL("https://api.test/gql?v=2")}, "", "https://api.test/gql?api_key=tok&v=2"},
		{"routed url", []ExecutorOption{WithDefaultURL("https://api.test/gql")}, "https://users.test/graphql", "https://users.test/graphql?api_key=tok"},
		{"base url", []ExecutorOption{WithBaseURL("https://api.test")}, "", "https://api.test/graphql?api_key=tok"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doer := &recordingDoer{body: `{"data":{}}`}
			exec := NewExecutor(append(tc.opts, WithClient(doer))...)

			req := NewRawRequest([]byte(`{"query":"{a}"}`))
			req.URL = tc.url
			req.Params = url.Values{"api_key": {"tok"}}

			if _, err := exec.Execute(context.Background(), req); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if len(doer.urls) != 1 || doer.urls[0] != tc.wantURL {
				t.Errorf("Expected %q, got %v", tc.wantURL, doer.urls)
			}
			if req.URL != tc.url {
				t.Errorf("Execute should not rewrite req.URL, got %q", req.URL)
			}
		})
	}
}

func TestExecutorResolveURL(t *testing.T) {
	testCases := []struct {
		name string
		opts []ExecutorOption
		raw  string
		want string
	}{
		{"default", nil, "", DefaultURL},
		{"configured default", []ExecutorOption{WithDefaultURL("/api/graphql")}, "", "/api/graphql"},
		{"base joins default", []ExecutorOption{WithBaseURL("http://example.com/")}, "", "http://example.com/graphql"},
		{"base joins relative", []ExecutorOption{WithBaseURL("http://example.com")}, "/custom", "http://example.com/custom"},
		{"absolute wins over base", []ExecutorOption{WithBaseURL("http://example.com")}, "http://other.test/gql", "http://other.test/gql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exec := NewExecutor(append(tc.opts, WithClient(&recordingDoer{}))...)
			if got := exec.ResolveURL(tc.raw); got != tc.want {
				t.Errorf("ResolveURL(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestExecutorSendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/graphql" {
			t.Errorf("Expected /graphql, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Expected Authorization header, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"query":"{ viewer { id } }"`) {
			t.Errorf("Unexpected body: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"viewer":{"id":"42"}}}`))
	}))
	defer srv.Close()

	exec := NewExecutor(WithClient(srv.Client()), WithBaseURL(srv.URL))
	req, err := NewRequest("{ viewer { id } }", nil, "")
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Authorization", "Bearer token")

	resp, err := exec.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Status)
	}
	if string(resp.Data) != `{"viewer":{"id":"42"}}` {
		t.Errorf("Unexpected data: %s", resp.Data)
	}
	if resp.URL != srv.URL+"/graphql" {
		t.Errorf("Expected response URL %s/graphql, got %s", srv.URL, resp.URL)
	}
}

func TestExecutorErrorStatus(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"200 ok", 200, false},
		{"399 passes", 399, false},
		{"400 fails", 400, true},
		{"404 fails", 404, true},
		{"500 fails", 500, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doer := &recordingDoer{status: tc.status, body: `{"message":"upstream says no"}`}
			exec := NewExecutor(WithClient(doer))
			req := &Request{}

			resp, err := exec.Execute(context.Background(), req)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if resp.Status != tc.status {
					t.Errorf("Expected status %d, got %d", tc.status, resp.Status)
				}
				return
			}

			reqErr, ok := AsRequestError(err)
			if !ok || reqErr.Kind != KindTransport {
				t.Fatalf("Expected transport error, got %v", err)
			}
			if reqErr.Status() != tc.status {
				t.Errorf("Expected status %d on error, got %d", tc.status, reqErr.Status())
			}
			if !strings.Contains(reqErr.Response.Text, "upstream says no") {
				t.Errorf("Expected body to be kept on the response, got %q", reqErr.Response.Text)
			}
			if reqErr.Request != req {
				t.Errorf("Expected error to reference the original request")
			}
		})
	}
}

func TestExecutorNetworkError(t *testing.T) {
	netErr := errors.New("connection refused")
	exec := NewExecutor(WithClient(&recordingDoer{err: netErr}))

	_, err := exec.Execute(context.Background(), &Request{})
	if !IsTransportError(err) {
		t.Fatalf("Expected transport error, got %v", err)
	}
	if !errors.Is(err, netErr) {
		t.Errorf("Expected underlying network error to be wrapped")
	}
	reqErr, _ := AsRequestError(err)
	if reqErr.Response != nil {
		t.Errorf("Expected no response on network failure")
	}
}

func TestExecutorRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := NewExecutor(WithClient(srv.Client()), WithDefaultURL(srv.URL))
	_, err := exec.Execute(ctx, &Request{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
