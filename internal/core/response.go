package core

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Response is the structured form of a GraphQL reply. It is built once by
// NewResponse and treated as read-only afterwards.
type Response struct {
	// Status is the HTTP status code (0 when absent)
	Status int
	Header http.Header
	// URL is the endpoint the request was sent to
	URL string
	// Text is the raw reply body
	Text string
	// Data is the raw JSON of the "data" member, nil when absent or null
	Data []byte
	// Errors holds the GraphQL "errors" member
	Errors gqlerror.List
}

// NewResponse consumes and closes the reply body and builds a Response from it.
// Only 2xx replies contribute data; "errors" are decoded whenever the body is JSON.
func NewResponse(res *http.Response) (*Response, error) {
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	r := &Response{
		Status: res.StatusCode,
		Header: res.Header,
		Text:   string(body),
	}
	if res.Request != nil && res.Request.URL != nil {
		r.URL = res.Request.URL.String()
	}

	if !gjson.ValidBytes(body) {
		return r, nil
	}

	if r.Status >= 200 && r.Status < 300 {
		if data := gjson.GetBytes(body, "data"); data.Exists() && data.Type != gjson.Null {
			r.Data = []byte(data.Raw)
		}
	}
	r.Errors = decodeErrors(gjson.GetBytes(body, "errors"))

	return r, nil
}

// decodeErrors turns the "errors" member into a gqlerror.List. Anything that is
// present but not a well-formed error list is kept as a single error carrying the raw JSON.
func decodeErrors(v gjson.Result) gqlerror.List {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if v.IsArray() {
		var list gqlerror.List
		if err := sonic.UnmarshalString(v.Raw, &list); err == nil {
			return list
		}
	}
	return gqlerror.List{&gqlerror.Error{Message: v.Raw}}
}

// HasData reports whether the response carries a non-null data member
func (r *Response) HasData() bool {
	return r != nil && r.Data != nil
}

// JSON serializes the response in GraphQL wire shape: {"data": ..., "errors": [...]}
func (r *Response) JSON() ([]byte, error) {
	out := struct {
		Data   json.RawMessage `json:"data"`
		Errors gqlerror.List   `json:"errors,omitempty"`
	}{
		Data:   json.RawMessage("null"),
		Errors: r.Errors,
	}
	if r.Data != nil {
		out.Data = r.Data
	}
	return sonic.Marshal(out)
}
