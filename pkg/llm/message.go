package llm

// Role values used in chat-completion messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation history.
type Message struct {
	Role    string `json:"role" yaml:"role"`       // "system", "user", "assistant"
	Content string `json:"content" yaml:"content"` // Plain text content
}

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: text,
	}
}

// CloneMessages returns a copy of msgs that shares no backing array with the input.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
