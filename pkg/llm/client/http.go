package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/judgebench/pkg/llm"
	"github.com/papercomputeco/judgebench/pkg/llm/provider"
)

const (
	defaultTimeout = 600 * time.Second

	// maxErrorBody caps how much of a failed response is kept in StatusError.
	maxErrorBody = 64 << 10
)

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	// Endpoint is the full chat-completion URL the request is POSTed to.
	Endpoint string

	// APIKey is optional. When set, Authorization and x-bearer-token are sent.
	APIKey string

	// Provider encodes requests and extracts answers. Defaults to openai.
	Provider provider.Provider

	// Timeout bounds a single call including connect and body read.
	// Defaults to 600s.
	Timeout time.Duration

	// HTTPClient overrides the underlying client. Its Timeout is left as is.
	HTTPClient *http.Client
}

// HTTPClient is a Client that POSTs JSON over net/http.
type HTTPClient struct {
	endpoint string
	apiKey   string
	provider provider.Provider
	http     *http.Client
}

// NewHTTPClient creates an HTTPClient. The endpoint must be set.
func NewHTTPClient(c *HTTPConfig) (*HTTPClient, error) {
	if c == nil || strings.TrimSpace(c.Endpoint) == "" {
		return nil, errors.New("endpoint is required")
	}

	p := c.Provider
	if p == nil {
		var err error
		p, err = provider.New(provider.OpenAI)
		if err != nil {
			return nil, err
		}
	}

	hc := c.HTTPClient
	if hc == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &HTTPClient{
		endpoint: c.Endpoint,
		apiKey:   c.APIKey,
		provider: p,
		http:     hc,
	}, nil
}

// Complete sends req and parses the answer.
func (c *HTTPClient) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	payload, err := c.provider.EncodeRequest(req)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("encoding request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("creating request: %w", err)}
	}
	SetRequestHeaders(httpReq.Header, c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("reading response body: %w", err)}
	}

	chatResp, err := c.provider.ParseResponse(body)
	if err != nil {
		return nil, &ResponseError{Err: err}
	}

	return chatResp, nil
}
