// Package client sends chat-completion requests to an LLM endpoint and
// classifies what went wrong when a call does not produce an answer.
package client

import (
	"context"

	"github.com/papercomputeco/judgebench/pkg/llm"
)

// Client performs a single chat-completion call. Implementations must be safe
// for concurrent use; one Client is shared by every in-flight call of a stage.
//
// Complete returns one of *StatusError, *TransportError or *ResponseError
// when the call fails, so callers can decide whether to retry.
type Client interface {
	Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}
