package executor

import (
	"context"

	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/dispatch"
	"github.com/papercomputeco/judgebench/pkg/llm"
	"github.com/papercomputeco/judgebench/pkg/utils"
)

// Sender sends a message history and reports the outcome.
// *dispatch.Dispatcher satisfies it.
type Sender interface {
	Send(ctx context.Context, messages []llm.Message) dispatch.Outcome
}

// Conversation runs the turns of one conversation in order against a shared
// history. It stops at the first failed turn. A Conversation is not safe for
// concurrent use: only one Step may be in flight at a time.
type Conversation struct {
	id      string
	turns   []bench.Turn
	next    int
	history []llm.Message
	results []bench.TurnResult
	done    bool
}

// NewConversation creates a Conversation positioned at its first turn.
func NewConversation(id string, turns []bench.Turn) *Conversation {
	return &Conversation{
		id:    id,
		turns: turns,
		done:  len(turns) == 0,
	}
}

// ID is the conversation id.
func (c *Conversation) ID() string {
	return c.id
}

// Done reports whether the conversation has no more turns to run, either
// because every turn ran or because one failed.
func (c *Conversation) Done() bool {
	return c.done
}

// Step runs the pending turn: the user message is appended to the history,
// the history is sent, and the answer is appended on success. A failed turn
// ends the conversation. Step reports whether another turn is ready.
func (c *Conversation) Step(ctx context.Context, s Sender) bool {
	if c.done {
		return false
	}

	turn := c.turns[c.next]
	c.history = append(c.history, llm.NewTextMessage(llm.RoleUser, turn.User))

	out := s.Send(ctx, c.history)
	result := c.pending()
	result.Latency = out.Latency.Seconds()

	if out.OK() {
		result.Actual = utils.Ptr(out.Answer)
		c.history = append(c.history, llm.NewTextMessage(llm.RoleAssistant, out.Answer))
		c.advance(result)
		return !c.done
	}

	result.Error = utils.Ptr(out.Err.Error())
	c.terminate(result)
	return false
}

// Run steps through every remaining turn and returns the results.
func (c *Conversation) Run(ctx context.Context, s Sender) []bench.TurnResult {
	for c.Step(ctx, s) {
	}
	return c.Results()
}

// Results returns a copy of the results recorded so far, in turn order.
func (c *Conversation) Results() []bench.TurnResult {
	out := make([]bench.TurnResult, len(c.results))
	copy(out, c.results)
	return out
}

// last returns the most recent result. Callers check that one exists.
func (c *Conversation) last() bench.TurnResult {
	return c.results[len(c.results)-1]
}

// abort ends the conversation at the pending turn without sending it.
func (c *Conversation) abort(reason string) {
	if c.done {
		return
	}
	turn := c.turns[c.next]
	result := c.pending()
	result.Error = utils.Ptr(reason)
	c.history = append(c.history, llm.NewTextMessage(llm.RoleUser, turn.User))
	c.terminate(result)
}

// pending builds the result skeleton for the current turn.
func (c *Conversation) pending() bench.TurnResult {
	n := c.next + 1
	turn := c.turns[c.next]
	return bench.TurnResult{
		ID:             bench.TurnID(c.id, n),
		ConversationID: utils.Ptr(c.id),
		Turn:           utils.Ptr(n),
		UserMessage:    turn.User,
		Expected:       turn.Expected,
	}
}

func (c *Conversation) advance(r bench.TurnResult) {
	c.results = append(c.results, r)
	c.next++
	c.done = c.next >= len(c.turns)
}

func (c *Conversation) terminate(r bench.TurnResult) {
	c.results = append(c.results, r)
	c.done = true
}
