// Package sdk provides a client.Client backed by github.com/sashabaranov/go-openai.
package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/judgebench/pkg/llm"
	"github.com/papercomputeco/judgebench/pkg/llm/client"
)

const (
	defaultTimeout = 600 * time.Second

	chatCompletionsSuffix = "/chat/completions"
)

// Config configures the SDK client.
type Config struct {
	// Endpoint is either the full chat-completion URL or the API base URL
	// (e.g. "https://api.openai.com/v1").
	Endpoint string

	// APIKey is optional.
	APIKey string

	// Timeout bounds a single call. Defaults to 600s.
	Timeout time.Duration
}

// Client implements client.Client with the go-openai SDK.
type Client struct {
	api *openai.Client
}

// New creates a go-openai backed client.
func New(c *Config) (*Client, error) {
	if c == nil || strings.TrimSpace(c.Endpoint) == "" {
		return nil, errors.New("endpoint is required")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cfg := openai.DefaultConfig(c.APIKey)
	cfg.BaseURL = BaseURL(c.Endpoint)
	cfg.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: client.NewAuthTransport(nil, c.APIKey),
	}

	return &Client{api: openai.NewClientWithConfig(cfg)}, nil
}

// BaseURL strips a trailing /chat/completions so a full endpoint URL can be
// used as the SDK base URL.
func BaseURL(endpoint string) string {
	base := strings.TrimRight(endpoint, "/")
	return strings.TrimSuffix(base, chatCompletionsSuffix)
}

// Complete sends req through the SDK.
func (c *Client) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &client.ResponseError{Err: fmt.Errorf("no choices in response: %w", llm.ErrMissingAnswer)}
	}

	choice := resp.Choices[0]
	role := choice.Message.Role
	if role == "" {
		role = llm.RoleAssistant
	}

	return &llm.ChatResponse{
		Model:      resp.Model,
		CreatedAt:  time.Unix(resp.Created, 0),
		Message:    llm.NewTextMessage(role, choice.Message.Content),
		StopReason: string(choice.FinishReason),
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// classify maps SDK errors onto the client error types.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &client.StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &client.StatusError{StatusCode: reqErr.HTTPStatusCode, Body: body}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &client.ResponseError{Err: err}
	}

	return &client.TransportError{Err: err}
}
