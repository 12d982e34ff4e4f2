package evaluator

import (
	"strings"

	"github.com/papercomputeco/judgebench/pkg/llm"
)

// SystemPrompt is the system message of every judge request.
const SystemPrompt = "You are a strict evaluator of answers."

const inabilityCriterion = "❌ **CRITICAL: Assign a score of 0.0** if the actual answer indicates *any* inability, failure, error, or refusal to answer. " +
	"Examples include, but are not limited to: 'I couldn't retrieve', 'Unable to fetch', 'I don't know', 'Error', " +
	"'wasn't able to run', 'I encountered an error', 'failed to', 'cannot provide', 'request failed'. Be very strict about this.\n\n"

const formatInstructions = "Respond with:\n" +
	"1. A **single numeric score between 0 and 1**, with up to two decimal places.\n" +
	"2. Followed by a short reason for this score, in **one sentence**.\n\n" +
	"Format your response exactly like this:\n" +
	"%EXAMPLE%\n\n" +
	"**Special case for 0.0 score due to inability/refusal:**\n" +
	"If you assign 0.0 because the answer indicates inability or refusal, format the response like this:\n" +
	"0.0\nReason: Inability: The model stated it could not perform the task.\n\n" +
	"Important: Do not add any other explanation outside this format."

const comparisonCriteria = "Your task is to act as a strict evaluator comparing the actual answer to the reference answer.\n" +
	"Context: This might be part of a conversation.\n" +
	"✅ Focus on semantic similarity, not exact match.\n" +
	"✅ Variable values, numbers, or identifiers may vary, as long as meaning is preserved.\n" +
	"✅ Check if the actual answer delivers the same intent, logic, and meaning as the reference.\n" +
	"✅ Ignore formatting differences or phrasing variations.\n" +
	"❌ Deduct points if meaning is lost, logic is incorrect, or important elements are missing.\n"

const selfEvaluationCriteria = "There is no reference answer provided.\n" +
	"Your task is to self-evaluate this answer for correctness, completeness, and clarity.\n" +
	"Context: This might be part of a conversation.\n" +
	"✅ Consider if the answer is logically sound and factually correct.\n" +
	"✅ Check if it fully answers the implied question or task.\n" +
	"✅ Reward answers that are well-structured, clear, and comprehensive.\n" +
	"❌ Deduct points for incomplete, vague, or factually incorrect responses.\n"

const (
	comparisonExample = "0.85\nReason: The actual answer matches the intent but misses some details."
	selfExample       = "0.90\nReason: The answer is clear, well-explained, and complete."
)

// BuildPrompt returns the judge's user message. A non-empty expected answer
// selects the comparison prompt; otherwise the answer is self-evaluated.
func BuildPrompt(expected *string, actual string) string {
	var b strings.Builder

	if expected != nil && *expected != "" {
		b.WriteString("Reference answer:\n")
		b.WriteString(*expected)
		b.WriteString("\n\nActual answer:\n")
		b.WriteString(actual)
		b.WriteString("\n\n")
		b.WriteString(comparisonCriteria)
		b.WriteString(inabilityCriterion)
		b.WriteString(strings.Replace(formatInstructions, "%EXAMPLE%", comparisonExample, 1))
		return b.String()
	}

	b.WriteString("Actual answer:\n")
	b.WriteString(actual)
	b.WriteString("\n\n")
	b.WriteString(selfEvaluationCriteria)
	b.WriteString(inabilityCriterion)
	b.WriteString(strings.Replace(formatInstructions, "%EXAMPLE%", selfExample, 1))
	return b.String()
}

// BuildMessages returns the full judge conversation for one answer.
func BuildMessages(expected *string, actual string) []llm.Message {
	return []llm.Message{
		llm.NewTextMessage(llm.RoleSystem, SystemPrompt),
		llm.NewTextMessage(llm.RoleUser, BuildPrompt(expected, actual)),
	}
}
