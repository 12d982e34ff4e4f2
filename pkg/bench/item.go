// Package bench defines the records that flow through a benchmark run:
// prompt items going in, turn results coming out of execution, and
// evaluated results coming out of the judge.
package bench

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/judgebench/pkg/llm"
)

// ErrInvalidItem is returned by Validate for items that are neither a single
// prompt nor a conversation.
var ErrInvalidItem = errors.New("invalid item format")

// Kind tags which form a PromptItem carries.
type Kind int

const (
	// KindInvalid has neither messages nor turns, or has both.
	KindInvalid Kind = iota

	// KindSingle is a single-turn prompt built from Messages.
	KindSingle

	// KindConversation is an ordered list of Turns sharing history.
	KindConversation
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindConversation:
		return "conversation"
	default:
		return "invalid"
	}
}

// Turn is one user message of a conversation and its optional reference answer.
type Turn struct {
	User     string  `json:"user" yaml:"user"`
	Expected *string `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// PromptItem is a benchmark input. Kind decides which fields are meaningful:
// Messages and Expected for KindSingle, Turns for KindConversation.
type PromptItem struct {
	ID       string
	Kind     Kind
	Messages []llm.Message
	Expected *string
	Turns    []Turn
}

// NewSingle creates a single-turn prompt item.
func NewSingle(id string, messages []llm.Message, expected *string) PromptItem {
	return PromptItem{
		ID:       id,
		Kind:     KindSingle,
		Messages: messages,
		Expected: expected,
	}
}

// NewConversation creates a conversation prompt item.
func NewConversation(id string, turns []Turn) PromptItem {
	return PromptItem{
		ID:    id,
		Kind:  KindConversation,
		Turns: turns,
	}
}

// Validate returns ErrInvalidItem unless the item is a single prompt or a
// conversation with an ID.
func (p PromptItem) Validate() error {
	if p.Kind == KindInvalid {
		return fmt.Errorf("item %q: %w", p.ID, ErrInvalidItem)
	}
	if p.ID == "" {
		return fmt.Errorf("item without id: %w", ErrInvalidItem)
	}
	return nil
}

// UserMessage is the text recorded as user_message for a single prompt:
// the content of the first message.
func (p PromptItem) UserMessage() string {
	if len(p.Messages) == 0 {
		return ""
	}
	return p.Messages[0].Content
}

// promptItemWire is the on-disk shape shared by JSON and YAML prompt files.
type promptItemWire struct {
	ID       string        `json:"id" yaml:"id"`
	Messages []llm.Message `json:"messages,omitempty" yaml:"messages,omitempty"`
	Turns    []Turn        `json:"turns,omitempty" yaml:"turns,omitempty"`
	Expected *string       `json:"expected,omitempty" yaml:"expected,omitempty"`
}

func (w promptItemWire) item() PromptItem {
	p := PromptItem{
		ID:       w.ID,
		Messages: w.Messages,
		Expected: w.Expected,
		Turns:    w.Turns,
	}

	hasMessages := len(w.Messages) > 0
	hasTurns := len(w.Turns) > 0
	switch {
	case hasTurns && !hasMessages:
		p.Kind = KindConversation
	case hasMessages && !hasTurns:
		p.Kind = KindSingle
	default:
		p.Kind = KindInvalid
	}

	return p
}

func (p PromptItem) wire() promptItemWire {
	return promptItemWire{
		ID:       p.ID,
		Messages: p.Messages,
		Turns:    p.Turns,
		Expected: p.Expected,
	}
}

// UnmarshalJSON decodes an item and decides its Kind once.
func (p *PromptItem) UnmarshalJSON(data []byte) error {
	var w promptItemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = w.item()
	return nil
}

// MarshalJSON encodes the item in the prompt file shape.
func (p PromptItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.wire())
}

// UnmarshalYAML decodes an item and decides its Kind once.
func (p *PromptItem) UnmarshalYAML(node *yaml.Node) error {
	var w promptItemWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	*p = w.item()
	return nil
}
