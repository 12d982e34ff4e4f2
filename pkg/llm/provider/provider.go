package provider

import (
	"github.com/papercomputeco/judgebench/pkg/llm"
)

// Provider defines the interface for a chat-completion wire format.
// Each provider implementation knows how to encode the internal request
// representation and extract the assistant answer from a response body.
type Provider interface {
	// Name returns the canonical provider name (e.g., "openai", "text")
	Name() string

	// EncodeRequest converts the internal request into the provider-specific
	// JSON payload.
	EncodeRequest(req *llm.ChatRequest) ([]byte, error)

	// ParseResponse converts a provider-specific response into the internal format.
	// Returns an error wrapping llm.ErrMissingAnswer if the payload is well-formed
	// but has no answer, or a decoding error if it cannot be parsed at all.
	ParseResponse(payload []byte) (*llm.ChatResponse, error)
}
