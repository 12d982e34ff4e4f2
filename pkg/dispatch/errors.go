package dispatch

import (
	"errors"

	"github.com/papercomputeco/judgebench/pkg/llm/client"
)

// ErrConfiguration is returned by New when the dispatcher cannot be built.
// It is fatal for the stage that owns the dispatcher.
var ErrConfiguration = errors.New("configuration error")

// Kind classifies a terminal dispatch failure.
type Kind string

const (
	// KindTransport covers connection refused, DNS, timeouts and cancellation.
	KindTransport Kind = "transport"

	// KindRateLimited is an HTTP 429 that persisted through every retry.
	KindRateLimited Kind = "rate_limited"

	// KindProtocol covers other non-200 statuses, malformed bodies and
	// requests that could not be encoded.
	KindProtocol Kind = "protocol"
)

// Failure is the terminal error of a Send.
type Failure struct {
	Kind Kind

	// StatusCode is the HTTP status for KindRateLimited and status-based
	// KindProtocol failures, 0 otherwise.
	StatusCode int

	Err error
}

func (f *Failure) Error() string {
	return f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// classify maps a client error onto a Failure.
func classify(err error) *Failure {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		kind := KindProtocol
		if statusErr.RateLimited() {
			kind = KindRateLimited
		}
		return &Failure{Kind: kind, StatusCode: statusErr.StatusCode, Err: err}
	}

	var respErr *client.ResponseError
	if errors.As(err, &respErr) {
		return &Failure{Kind: KindProtocol, Err: err}
	}

	var reqErr *client.RequestError
	if errors.As(err, &reqErr) {
		return &Failure{Kind: KindProtocol, Err: err}
	}

	var transportErr *client.TransportError
	if errors.As(err, &transportErr) {
		return &Failure{Kind: KindTransport, Err: err}
	}

	return &Failure{Kind: KindTransport, Err: &client.TransportError{Err: err}}
}
