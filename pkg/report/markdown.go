// Package report renders and writes the output of a benchmark run: the
// structured results file, the summary file, and a human-readable report
// as markdown (for the terminal) or HTML.
package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/papercomputeco/judgebench/pkg/aggregator"
	"github.com/papercomputeco/judgebench/pkg/bench"
)

const notAvailable = "N/A"

// InterpretScore returns a plain-language label for a score in [0,1].
func InterpretScore(score float64) string {
	pct := score * 100
	switch {
	case pct > 90:
		return "Excellent (>90%)"
	case pct >= 70:
		return "Good (70-90%)"
	case pct >= 50:
		return "Needs Work (50-70%)"
	default:
		return "Poor (<50%)"
	}
}

// Markdown renders the summary and every result as a GFM document.
func Markdown(summary aggregator.Summary, entries []aggregator.Entry) string {
	var b strings.Builder
	writeSummary(&b, summary)

	b.WriteString("\n## Detailed Results\n\n")
	b.WriteString("| ID | User message | Expected | Actual | Score | Reasoning | Latency (s) | Error |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, r := range aggregator.Flatten(entries) {
		writeRow(&b, r)
	}

	return b.String()
}

// SummaryMarkdown renders only the overall and per-conversation summary.
func SummaryMarkdown(summary aggregator.Summary) string {
	var b strings.Builder
	writeSummary(&b, summary)
	return b.String()
}

func writeSummary(b *strings.Builder, summary aggregator.Summary) {
	o := summary.OverallSummary

	b.WriteString("# LLM Benchmark Report\n\n")

	b.WriteString("## Overall Summary\n\n")
	fmt.Fprintf(b, "- Total items processed (turns + single prompts): **%d**\n", o.TotalItemsProcessed)
	fmt.Fprintf(b, "- Successfully completed items: **%d**\n", o.SuccessfullyCompletedItems)
	fmt.Fprintf(b, "- Scored items: **%d**\n", o.ScoredItems)
	fmt.Fprintf(b, "- Items with errors: **%d**\n", o.ErrorItems)
	if o.AverageScoreOverall != nil {
		fmt.Fprintf(b, "- Average score: **%.4f**, %s\n", *o.AverageScoreOverall, InterpretScore(*o.AverageScoreOverall))
	} else {
		fmt.Fprintf(b, "- Average score: %s\n", notAvailable)
	}
	fmt.Fprintf(b, "- Score range (min-max): %s\n", span(o.MinScoreOverall, o.MaxScoreOverall, ""))
	fmt.Fprintf(b, "- Average latency: %s\n", seconds(o.AverageLatencyOverall))
	fmt.Fprintf(b, "- Median latency: %s\n", seconds(o.MedianLatencyOverall))
	fmt.Fprintf(b, "- Latency range (min-max): %s\n", span(o.MinLatencyOverall, o.MaxLatencyOverall, " sec"))

	if len(summary.ConversationSummaries) > 0 {
		b.WriteString("\n## Conversations\n\n")
		b.WriteString("| Conversation | Turns | Completed | Scored | Errors | Avg score | Total latency (s) |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")

		ids := make([]string, 0, len(summary.ConversationSummaries))
		for id := range summary.ConversationSummaries {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		for _, id := range ids {
			c := summary.ConversationSummaries[id]
			fmt.Fprintf(b, "| %s | %d | %d | %d | %d | %s | %s |\n",
				cell(id), c.TotalTurns, c.SuccessfullyCompletedTurns, c.ScoredTurns, c.ErrorTurns,
				number(c.AverageScore, "%.4f"), number(c.TotalLatency, "%.4f"))
		}
	}
}

func writeRow(b *strings.Builder, r bench.EvaluatedResult) {
	errText := ""
	switch {
	case r.Error != nil:
		errText = *r.Error
	case r.EvalError != nil:
		errText = *r.EvalError
	}

	fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s | %.4f | %s |\n",
		cell(r.ID),
		cell(r.UserMessage),
		cell(deref(r.Expected)),
		cell(deref(r.Actual)),
		number(r.Score, "%.2f"),
		cell(deref(r.ScoreReasoning)),
		r.Latency,
		cell(errText),
	)
}

// cellEscaper keeps model output inside one table cell and stops it from
// being read as markup.
var cellEscaper = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"|", `\|`,
	"<", `\<`,
)

func cell(s string) string {
	return cellEscaper.Replace(strings.TrimSpace(s))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func number(v *float64, format string) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf(format, *v)
}

func seconds(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.4f sec", *v)
}

func span(lo, hi *float64, unit string) string {
	if lo == nil || hi == nil {
		return notAvailable
	}
	return fmt.Sprintf("%.4f - %.4f%s", *lo, *hi, unit)
}
