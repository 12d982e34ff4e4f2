package bench

import "fmt"

// InvalidItemError is the error text recorded for items that fail validation.
const InvalidItemError = "invalid item format"

// TurnResult is the outcome of executing one turn. Exactly one of Actual and
// Error is set.
type TurnResult struct {
	ID             string  `json:"id"`
	ConversationID *string `json:"conversation_id"`
	Turn           *int    `json:"turn"`
	UserMessage    string  `json:"user_message"`
	Expected       *string `json:"expected"`
	Actual         *string `json:"actual"`
	Latency        float64 `json:"latency"`
	Error          *string `json:"error"`
}

// Failed reports whether execution failed terminally.
func (r TurnResult) Failed() bool {
	return r.Error != nil
}

// TurnID builds the id of the n-th (1-based) turn of a conversation.
func TurnID(conversationID string, n int) string {
	return fmt.Sprintf("%s-turn-%d", conversationID, n)
}

// EvaluatedResult is a TurnResult with the judge's verdict merged in.
type EvaluatedResult struct {
	TurnResult

	Score          *float64 `json:"score"`
	ScoreReasoning *string  `json:"scoreReasoning"`
	EvalError      *string  `json:"eval_error"`
}

// HasError reports whether execution or evaluation recorded an error.
func (r EvaluatedResult) HasError() bool {
	return r.Error != nil || r.EvalError != nil
}
