package aggregator

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/papercomputeco/judgebench/pkg/bench"
)

// Entry is one element of the structured results: either a conversation or
// a standalone result. Exactly one field is set.
type Entry struct {
	Conversation *Conversation
	Result       *bench.EvaluatedResult
}

// IsConversation reports whether the entry groups conversation turns.
func (e Entry) IsConversation() bool {
	return e.Conversation != nil
}

// Results returns the evaluated results the entry carries.
func (e Entry) Results() []bench.EvaluatedResult {
	switch {
	case e.Conversation != nil:
		return e.Conversation.Turns
	case e.Result != nil:
		return []bench.EvaluatedResult{*e.Result}
	default:
		return nil
	}
}

// MarshalJSON encodes the conversation object or the bare result.
func (e Entry) MarshalJSON() ([]byte, error) {
	switch {
	case e.Conversation != nil:
		return json.Marshal(e.Conversation)
	case e.Result != nil:
		return json.Marshal(e.Result)
	default:
		return nil, errors.New("empty entry")
	}
}

// UnmarshalJSON decodes a conversation object when a turns array is
// present and a standalone result otherwise.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var shape struct {
		Turns json.RawMessage `json:"turns"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}

	if len(shape.Turns) > 0 && !bytes.Equal(shape.Turns, []byte("null")) {
		conv := &Conversation{}
		if err := json.Unmarshal(data, conv); err != nil {
			return err
		}
		*e = Entry{Conversation: conv}
		return nil
	}

	result := &bench.EvaluatedResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return err
	}
	*e = Entry{Result: result}
	return nil
}

// Flatten returns the evaluated results of entries in order.
func Flatten(entries []Entry) []bench.EvaluatedResult {
	var out []bench.EvaluatedResult
	for _, e := range entries {
		out = append(out, e.Results()...)
	}
	return out
}
