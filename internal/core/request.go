package core

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DefaultURL is the endpoint a request is sent to when it carries no URL.
const DefaultURL = "/graphql"

// Request is the mutable unit of work passed by pointer through the middleware chain.
// Middlewares may change any field in place before calling next; the executor sees
// whatever the chain left behind.
type Request struct {
	ID     string
	URL    string
	Method string
	Header http.Header
	// Params holds query-string parameters the executor appends to the resolved URL
	Params    url.Values
	Body      []byte
	StartTime time.Time

	mu       sync.RWMutex
	metadata map[string]interface{}

	// Vault stores placeholder -> original secret mappings for masked variables
	// Map: "__GQLR_SEC_a1b2c3d4e5f6__" -> "sk-real-key"
	vault   map[string]string
	vaultMu sync.RWMutex
}

// NewRequest encodes a GraphQL payload and wraps it in a Request
func NewRequest(query string, variables map[string]interface{}, operationName string) (*Request, error) {
	payload := map[string]interface{}{
		"query": query,
	}
	if len(variables) > 0 {
		payload["variables"] = variables
	}
	if operationName != "" {
		payload["operationName"] = operationName
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return NewRawRequest(body), nil
}

// NewRawRequest wraps an already encoded GraphQL JSON body
func NewRawRequest(body []byte) *Request {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")

	return &Request{
		ID:        uuid.NewString(),
		Method:    http.MethodPost,
		Header:    header,
		Body:      body,
		StartTime: time.Now(),
		metadata:  make(map[string]interface{}),
		vault:     make(map[string]string),
	}
}

// Query returns the GraphQL document of the request body
func (r *Request) Query() string {
	return gjson.GetBytes(r.Body, "query").String()
}

// OperationName returns the operationName of the request body, if any
func (r *Request) OperationName() string {
	return gjson.GetBytes(r.Body, "operationName").String()
}

// Variables returns the "variables" member of the request body
func (r *Request) Variables() gjson.Result {
	return gjson.GetBytes(r.Body, "variables")
}

// Variable reads a variable by gjson path relative to "variables"
func (r *Request) Variable(path string) gjson.Result {
	return gjson.GetBytes(r.Body, "variables."+path)
}

// SetVariable writes a variable in place by sjson path relative to "variables"
func (r *Request) SetVariable(path string, value interface{}) error {
	body, err := sjson.SetBytes(r.Body, "variables."+path, value)
	if err != nil {
		return fmt.Errorf("failed to set variable %s: %w", path, err)
	}
	r.Body = body
	return nil
}

// SetMetadata sets a metadata value (thread-safe)
func (r *Request) SetMetadata(key string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.metadata == nil {
		r.metadata = make(map[string]interface{})
	}
	r.metadata[key] = value
}

// GetMetadata gets a metadata value (thread-safe)
func (r *Request) GetMetadata(key string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.metadata[key]
	return v, ok
}

// Metadata returns a copy of all metadata (thread-safe)
func (r *Request) Metadata() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]interface{}, len(r.metadata))
	for k, v := range r.metadata {
		out[k] = v
	}
	return out
}

// VaultStore stores a placeholder -> original secret mapping (thread-safe)
func (r *Request) VaultStore(placeholder, original string) {
	r.vaultMu.Lock()
	defer r.vaultMu.Unlock()
	if r.vault == nil {
		r.vault = make(map[string]string)
	}
	r.vault[placeholder] = original
}

// VaultGet retrieves the original secret for a placeholder (thread-safe)
func (r *Request) VaultGet(placeholder string) (string, bool) {
	r.vaultMu.RLock()
	defer r.vaultMu.RUnlock()
	original, ok := r.vault[placeholder]
	return original, ok
}

// VaultAll returns a copy of all vault mappings (thread-safe)
func (r *Request) VaultAll() map[string]string {
	r.vaultMu.RLock()
	defer r.vaultMu.RUnlock()
	out := make(map[string]string, len(r.vault))
	for k, v := range r.vault {
		out[k] = v
	}
	return out
}
