package client

import (
	"net/http"
)

// BearerTokenHeader carries the API key for gateways that do not read the
// Authorization header.
const BearerTokenHeader = "x-bearer-token"

// SetRequestHeaders sets the JSON content headers and, when apiKey is not
// empty, both authorization headers.
func SetRequestHeaders(h http.Header, apiKey string) {
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")

	if apiKey == "" {
		return
	}

	h.Set("Authorization", "Bearer "+apiKey)
	h.Set(BearerTokenHeader, apiKey)
}

// authTransport adds the compatibility bearer header to every request sent
// through clients that manage Authorization themselves.
type authTransport struct {
	base   http.RoundTripper
	apiKey string
}

// NewAuthTransport wraps base so that each request carries BearerTokenHeader.
// A nil base uses http.DefaultTransport.
func NewAuthTransport(base http.RoundTripper, apiKey string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{base: base, apiKey: apiKey}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.apiKey == "" {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set(BearerTokenHeader, t.apiKey)
	return t.base.RoundTrip(clone)
}
