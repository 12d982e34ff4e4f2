package llm

// ChatRequest represents a provider-agnostic chat completion request.
// Requests built by judgebench always disable streaming.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o", "llama3")
	Model string `json:"model"`

	// Conversation messages, oldest first
	Messages []Message `json:"messages"`

	// Whether to stream the response
	Stream bool `json:"stream"`
}

// NewChatRequest creates a non-streaming request for model over a copy of msgs.
func NewChatRequest(model string, msgs []Message) *ChatRequest {
	return &ChatRequest{
		Model:    model,
		Messages: CloneMessages(msgs),
		Stream:   false,
	}
}
