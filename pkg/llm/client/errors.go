package client

import (
	"fmt"
	"net/http"
)

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the endpoint asked the caller to slow down.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// TransportError wraps connection-level failures: refused connections, DNS,
// timeouts and cancelled contexts.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "connection error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseError is returned when a 200 response body cannot be decoded or has
// no answer.
type ResponseError struct {
	Err error
}

func (e *ResponseError) Error() string {
	return "response parsing error: " + e.Err.Error()
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// RequestError is returned when the request cannot be built, so nothing was
// sent to the endpoint.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return "request error: " + e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
