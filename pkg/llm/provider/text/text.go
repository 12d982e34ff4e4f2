// Package text implements a provider whose response body is the answer itself.
// Requests are encoded in the OpenAI chat-completion shape.
package text

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/judgebench/pkg/llm"
	"github.com/papercomputeco/judgebench/pkg/llm/provider/openai"
)

// Provider sends OpenAI-shaped requests and reads plain-text responses.
type Provider struct {
	encoder *openai.Provider
}

func New() *Provider {
	return &Provider{encoder: openai.New()}
}

func (t *Provider) Name() string {
	return "text"
}

func (t *Provider) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	return t.encoder.EncodeRequest(req)
}

// ParseResponse returns the whole body as the assistant answer. A body that
// is empty after trimming whitespace has no answer.
func (t *Provider) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	body := string(payload)
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("empty response body: %w", llm.ErrMissingAnswer)
	}

	return &llm.ChatResponse{
		Message: llm.NewTextMessage(llm.RoleAssistant, body),
	}, nil
}
