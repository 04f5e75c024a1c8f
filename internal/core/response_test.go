package core

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func newHTTPResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNewResponse(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		wantData   string
		wantErrors int
	}{
		{"data only", 200, `{"data":{"a":1}}`, `{"a":1}`, 0},
		{"data and errors", 200, `{"data":{"a":null},"errors":[{"message":"partial"}]}`, `{"a":null}`, 1},
		{"null data", 200, `{"data":null,"errors":[{"message":"x"},{"message":"y"}]}`, "", 2},
		{"missing data", 200, `{}`, "", 0},
		{"not json", 200, `<html>oops</html>`, "", 0},
		{"error status ignores data", 500, `{"data":{"a":1},"errors":[{"message":"down"}]}`, "", 1},
		{"error status plain text", 502, `bad gateway`, "", 0},
		{"malformed errors member", 200, `{"data":{},"errors":"boom"}`, `{}`, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := NewResponse(newHTTPResponse(tc.status, tc.body))
			if err != nil {
				t.Fatalf("NewResponse failed: %v", err)
			}
			if resp.Status != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, resp.Status)
			}
			if resp.Text != tc.body {
				t.Errorf("Expected text to be the raw body, got %q", resp.Text)
			}
			if string(resp.Data) != tc.wantData {
				t.Errorf("Expected data %q, got %q", tc.wantData, resp.Data)
			}
			if resp.HasData() != (tc.wantData != "") {
				t.Errorf("HasData() = %v", resp.HasData())
			}
			if len(resp.Errors) != tc.wantErrors {
				t.Errorf("Expected %d errors, got %d", tc.wantErrors, len(resp.Errors))
			}
		})
	}
}

func TestNewResponseDecodesErrorDetails(t *testing.T) {
	body := `{"data":null,"errors":[{"message":"Unknown field","locations":[{"line":2,"column":5}],"path":["viewer",0,"name"],"extensions":{"code":"GRAPHQL_VALIDATION_FAILED"}}]}`
	resp, err := NewResponse(newHTTPResponse(200, body))
	if err != nil {
		t.Fatalf("NewResponse failed: %v", err)
	}
	if len(resp.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(resp.Errors))
	}

	gqlErr := resp.Errors[0]
	if gqlErr.Message != "Unknown field" {
		t.Errorf("Unexpected message %q", gqlErr.Message)
	}
	if len(gqlErr.Locations) != 1 || gqlErr.Locations[0].Line != 2 || gqlErr.Locations[0].Column != 5 {
		t.Errorf("Unexpected locations %+v", gqlErr.Locations)
	}
	if gqlErr.Extensions["code"] != "GRAPHQL_VALIDATION_FAILED" {
		t.Errorf("Unexpected extensions %+v", gqlErr.Extensions)
	}
}

func TestResponseJSON(t *testing.T) {
	resp, _ := NewResponse(newHTTPResponse(200, `{"data":{"a":1},"errors":[{"message":"warn"}]}`))

	out, err := resp.JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	if got := gjson.GetBytes(out, "data.a").Int(); got != 1 {
		t.Errorf("Expected data.a = 1, got %d in %s", got, out)
	}
	if got := gjson.GetBytes(out, "errors.0.message").String(); got != "warn" {
		t.Errorf("Expected errors.0.message = warn, got %q", got)
	}

	empty := &Response{}
	out, err = empty.JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	if string(out) != `{"data":null}` {
		t.Errorf("Expected {\"data\":null}, got %s", out)
	}
}
