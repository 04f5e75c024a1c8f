package middlewares

import (
	"context"
	"net/http"
	"net/url"

	"gqlrelay/internal/core"
)

// captured is what a fake terminal saw
type captured struct {
	calls  int
	url    string
	header http.Header
	query  url.Values
	body   string
}

// fakeTerminal records the request and answers with data
func fakeTerminal(c *captured) core.NextFn {
	return func(ctx context.Context, req *core.Request) (*core.Response, error) {
		c.calls++
		c.url = req.URL
		c.header = req.Header.Clone()
		c.query = req.Params
		c.body = string(req.Body)
		return &core.Response{Status: http.StatusOK, URL: req.URL, Data: []byte(`{"ok":true}`)}, nil
	}
}

func newRequest(body string) *core.Request {
	return core.NewRawRequest([]byte(body))
}
