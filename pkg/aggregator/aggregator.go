// Package aggregator turns evaluated results into summary statistics and
// regroups conversation turns under their conversation. It has no I/O and
// does not mutate its input.
package aggregator

import (
	"github.com/papercomputeco/judgebench/pkg/bench"
)

// OverallSummary covers every result of a run.
type OverallSummary struct {
	TotalItemsProcessed        int `json:"total_items_processed"`
	SuccessfullyCompletedItems int `json:"successfully_completed_items"`
	ScoredItems                int `json:"scored_items"`
	ErrorItems                 int `json:"error_items"`

	AverageScoreOverall *float64 `json:"average_score_overall"`
	MedianScoreOverall  *float64 `json:"median_score_overall"`
	MinScoreOverall     *float64 `json:"min_score_overall"`
	MaxScoreOverall     *float64 `json:"max_score_overall"`

	AverageLatencyOverall *float64 `json:"average_latency_overall"`
	MedianLatencyOverall  *float64 `json:"median_latency_overall"`
	MinLatencyOverall     *float64 `json:"min_latency_overall"`
	MaxLatencyOverall     *float64 `json:"max_latency_overall"`
}

// ConversationSummary covers the turns of one conversation.
type ConversationSummary struct {
	TotalTurns                 int `json:"total_turns"`
	SuccessfullyCompletedTurns int `json:"successfully_completed_turns"`
	ScoredTurns                int `json:"scored_turns"`
	ErrorTurns                 int `json:"error_turns"`

	AverageScore *float64 `json:"average_score"`
	MedianScore  *float64 `json:"median_score"`
	MinScore     *float64 `json:"min_score"`
	MaxScore     *float64 `json:"max_score"`

	TotalLatency          *float64 `json:"total_latency"`
	AverageLatencyPerTurn *float64 `json:"average_latency_per_turn"`
	MedianLatencyPerTurn  *float64 `json:"median_latency_per_turn"`
	MinLatencyPerTurn     *float64 `json:"min_latency_per_turn"`
	MaxLatencyPerTurn     *float64 `json:"max_latency_per_turn"`
}

// Summary is the summary report of a run.
type Summary struct {
	OverallSummary        OverallSummary                 `json:"overall_summary"`
	ConversationSummaries map[string]ConversationSummary `json:"conversation_summaries"`
}

// Conversation groups the turns of one conversation in turn order.
type Conversation struct {
	ID                  string                  `json:"id"`
	Turns               []bench.EvaluatedResult `json:"turns"`
	ConversationSummary ConversationSummary     `json:"conversation_summary"`
}

// tally accumulates the counts and values shared by both summary kinds.
type tally struct {
	total     int
	errors    int
	scores    []float64
	latencies []float64
}

func (t *tally) add(r bench.EvaluatedResult) {
	t.total++
	if r.HasError() {
		t.errors++
	}
	if r.Score != nil {
		t.scores = append(t.scores, *r.Score)
	}
	t.latencies = append(t.latencies, r.Latency)
}

// Aggregate computes the summary report and the structured results:
// conversations in order of first appearance followed by standalone
// results in input order.
func Aggregate(results []bench.EvaluatedResult) (Summary, []Entry) {
	var (
		overall    tally
		order      []string
		convs      = make(map[string]*Conversation)
		tallies    = make(map[string]*tally)
		standalone []bench.EvaluatedResult
	)

	for _, r := range results {
		overall.add(r)

		if r.ConversationID == nil || *r.ConversationID == "" {
			standalone = append(standalone, r)
			continue
		}

		id := *r.ConversationID
		conv, ok := convs[id]
		if !ok {
			conv = &Conversation{ID: id}
			convs[id] = conv
			tallies[id] = &tally{}
			order = append(order, id)
		}
		conv.Turns = append(conv.Turns, r)
		tallies[id].add(r)
	}

	summary := Summary{
		OverallSummary:        overallSummary(overall),
		ConversationSummaries: make(map[string]ConversationSummary, len(order)),
	}

	entries := make([]Entry, 0, len(order)+len(standalone))
	for _, id := range order {
		conv := convs[id]
		conv.ConversationSummary = conversationSummary(*tallies[id])
		summary.ConversationSummaries[id] = conv.ConversationSummary
		entries = append(entries, Entry{Conversation: conv})
	}
	for i := range standalone {
		entries = append(entries, Entry{Result: &standalone[i]})
	}

	return summary, entries
}

func overallSummary(t tally) OverallSummary {
	score := Describe(t.scores)
	latency := Describe(t.latencies)

	return OverallSummary{
		TotalItemsProcessed:        t.total,
		SuccessfullyCompletedItems: t.total - t.errors,
		ScoredItems:                len(t.scores),
		ErrorItems:                 t.errors,

		AverageScoreOverall: score.Average,
		MedianScoreOverall:  score.Median,
		MinScoreOverall:     score.Min,
		MaxScoreOverall:     score.Max,

		AverageLatencyOverall: latency.Average,
		MedianLatencyOverall:  latency.Median,
		MinLatencyOverall:     latency.Min,
		MaxLatencyOverall:     latency.Max,
	}
}

func conversationSummary(t tally) ConversationSummary {
	score := Describe(t.scores)
	latency := Describe(t.latencies)

	return ConversationSummary{
		TotalTurns:                 t.total,
		SuccessfullyCompletedTurns: t.total - t.errors,
		ScoredTurns:                len(t.scores),
		ErrorTurns:                 t.errors,

		AverageScore: score.Average,
		MedianScore:  score.Median,
		MinScore:     score.Min,
		MaxScore:     score.Max,

		TotalLatency:          latency.Total,
		AverageLatencyPerTurn: latency.Average,
		MedianLatencyPerTurn:  latency.Median,
		MinLatencyPerTurn:     latency.Min,
		MaxLatencyPerTurn:     latency.Max,
	}
}
