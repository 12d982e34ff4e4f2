// Package openai implements the OpenAI Chat Completions wire format.
package openai

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/papercomputeco/judgebench/pkg/llm"
)

// Provider implements the provider.Provider interface for OpenAI's
// Chat Completions API and compatible endpoints.
type Provider struct{}

func New() *Provider { return &Provider{} }

func (o *Provider) Name() string {
	return "openai"
}

// EncodeRequest builds the {messages, model, stream} payload.
func (o *Provider) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("cannot encode nil request")
	}

	messages := make([]openaiMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openaiMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return json.Marshal(openaiRequest{
		Messages: messages,
		Model:    req.Model,
		Stream:   req.Stream,
	})
}

// ParseResponse extracts choices[0].message.content. Any other shape,
// including an empty choices array or non-string content, is an error.
func (o *Provider) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp openaiResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response: %w", llm.ErrMissingAnswer)
	}

	choice := resp.Choices[0]
	if choice.Message == nil {
		return nil, fmt.Errorf("no message in choices[0]: %w", llm.ErrMissingAnswer)
	}

	content, ok := choice.Message.Content.(string)
	if !ok {
		return nil, fmt.Errorf("choices[0].message.content is %T, not a string: %w", choice.Message.Content, llm.ErrMissingAnswer)
	}

	role := choice.Message.Role
	if role == "" {
		role = llm.RoleAssistant
	}

	var usage *llm.Usage
	if resp.Usage != nil {
		usage = &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	result := &llm.ChatResponse{
		Model:       resp.Model,
		Message:     llm.NewTextMessage(role, content),
		StopReason:  choice.FinishReason,
		Usage:       usage,
		RawResponse: payload,
	}
	if resp.Created > 0 {
		result.CreatedAt = time.Unix(resp.Created, 0)
	}

	return result, nil
}
