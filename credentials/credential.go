// Package credentials authenticates the live websocket handshake, either
// with a Gemini API key header or with Google Application Default
// Credentials.
package credentials

import (
	"context"
	"net/http"
)

// Credential applies authentication to an outgoing handshake request.
type Credential interface {
	// Apply adds authentication to the request headers.
	Apply(ctx context.Context, req *http.Request) error

	// Type returns the credential type identifier ("api_key", "gcp", "none").
	Type() string
}

// GeminiAPIKeyHeader is the header the Live endpoint reads the API key from.
const GeminiAPIKeyHeader = "x-goog-api-key"

// APIKeyCredential implements header-based API key authentication.
type APIKeyCredential struct {
	apiKey     string
	headerName string
	prefix     string
}

// APIKeyOption configures an APIKeyCredential.
type APIKeyOption func(*APIKeyCredential)

// WithHeaderName sets the header name for the API key.
func WithHeaderName(name string) APIKeyOption {
	return func(c *APIKeyCredential) {
		c.headerName = name
	}
}

// WithBearerPrefix adds "Bearer " prefix to the API key.
func WithBearerPrefix() APIKeyOption {
	return func(c *APIKeyCredential) {
		c.prefix = "Bearer "
	}
}

// NewAPIKeyCredential creates an API key credential. By default the key is
// sent bare in the x-goog-api-key header.
func NewAPIKeyCredential(apiKey string, opts ...APIKeyOption) *APIKeyCredential {
	c := &APIKeyCredential{
		apiKey:     apiKey,
		headerName: GeminiAPIKeyHeader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Apply adds the API key to the request header.
func (c *APIKeyCredential) Apply(_ context.Context, req *http.Request) error {
	if c.apiKey != "" {
		req.Header.Set(c.headerName, c.prefix+c.apiKey)
	}
	return nil
}

// Type returns "api_key".
func (c *APIKeyCredential) Type() string {
	return "api_key"
}

// APIKey returns the key.
func (c *APIKeyCredential) APIKey() string {
	return c.apiKey
}

// NoOpCredential adds nothing. Used against local or proxied endpoints.
type NoOpCredential struct{}

// Apply does nothing.
func (NoOpCredential) Apply(context.Context, *http.Request) error { return nil }

// Type returns "none".
func (NoOpCredential) Type() string { return "none" }

// Headers runs cred against a throwaway request for url and returns the
// resulting headers, for handshakes that take a header map.
func Headers(ctx context.Context, cred Credential, url string) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	if cred != nil {
		if err := cred.Apply(ctx, req); err != nil {
			return nil, err
		}
	}
	return req.Header, nil
}
