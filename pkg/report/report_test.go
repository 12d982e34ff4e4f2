package report_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/aggregator"
	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/report"
	"github.com/papercomputeco/judgebench/pkg/utils"
)

func sampleResults() []bench.EvaluatedResult {
	conv := "c1"
	return []bench.EvaluatedResult{
		{
			TurnResult: bench.TurnResult{
				ID: "p1", UserMessage: "capital of France?", Expected: utils.Ptr("Paris"),
				Actual: utils.Ptr("Paris | France"), Latency: 0.5,
			},
			Score: utils.Ptr(1.0), ScoreReasoning: utils.Ptr("exact"),
		},
		{
			TurnResult: bench.TurnResult{
				ID: bench.TurnID(conv, 1), ConversationID: &conv, Turn: utils.Ptr(1),
				UserMessage: "hi", Actual: utils.Ptr("<script>alert(1)</script>\nhello"), Latency: 0.25,
			},
			Score: utils.Ptr(0.5), ScoreReasoning: utils.Ptr("partial"),
		},
		{
			TurnResult: bench.TurnResult{
				ID: "bad", Error: utils.Ptr(bench.InvalidItemError),
			},
			ScoreReasoning: utils.Ptr("Evaluation skipped: execution error"),
		},
	}
}

var _ = Describe("InterpretScore", func() {
	DescribeTable("labels scores",
		func(score float64, want string) {
			Expect(report.InterpretScore(score)).To(Equal(want))
		},
		Entry("excellent", 0.95, "Excellent (>90%)"),
		Entry("good boundary", 0.70, "Good (70-90%)"),
		Entry("needs work", 0.5, "Needs Work (50-70%)"),
		Entry("poor", 0.0, "Poor (<50%)"),
	)
})

var _ = Describe("Markdown", func() {
	It("renders the summary, conversations and every result", func() {
		summary, entries := aggregator.Aggregate(sampleResults())
		md := report.Markdown(summary, entries)

		Expect(md).To(HavePrefix("# LLM Benchmark Report"))
		Expect(md).To(ContainSubstring("Total items processed (turns + single prompts): **3**"))
		Expect(md).To(ContainSubstring("Average score: **0.7500**, Good (70-90%)"))
		Expect(md).To(ContainSubstring("| c1 | 1 | 1 | 1 | 0 | 0.5000 | 0.2500 |"))
		Expect(md).To(ContainSubstring(`| p1 | capital of France? | Paris | Paris \| France | 1.00 | exact | 0.5000 |  |`))
		Expect(md).To(ContainSubstring("| bad |  |  |  | N/A |"))
		Expect(md).To(ContainSubstring(bench.InvalidItemError))
	})

	It("keeps multi-line answers on one table row", func() {
		summary, entries := aggregator.Aggregate(sampleResults())
		md := report.Markdown(summary, entries)

		Expect(md).To(ContainSubstring(`\<script>alert(1)\</script> hello`))
	})

	It("prints N/A when nothing was scored", func() {
		summary, entries := aggregator.Aggregate(nil)
		md := report.Markdown(summary, entries)

		Expect(md).To(ContainSubstring("Average score: N/A"))
		Expect(md).To(ContainSubstring("Latency range (min-max): N/A"))
		Expect(md).NotTo(ContainSubstring("## Conversations"))
	})

	It("renders the summary alone without the results table", func() {
		summary, _ := aggregator.Aggregate(sampleResults())
		md := report.SummaryMarkdown(summary)

		Expect(md).To(ContainSubstring("## Conversations"))
		Expect(md).NotTo(ContainSubstring("## Detailed Results"))
		Expect(report.Markdown(summary, nil)).To(HavePrefix(md))
	})
})

var _ = Describe("HTML", func() {
	It("renders tables and never passes model output through as markup", func() {
		summary, entries := aggregator.Aggregate(sampleResults())
		page, err := report.HTML(summary, entries)
		Expect(err).NotTo(HaveOccurred())

		html := string(page)
		Expect(html).To(HavePrefix("<!DOCTYPE html>"))
		Expect(html).To(ContainSubstring("<title>LLM Benchmark Report</title>"))
		Expect(html).To(ContainSubstring("<table>"))
		Expect(html).To(ContainSubstring("<td>p1</td>"))
		Expect(html).NotTo(ContainSubstring("<script>"))
		Expect(html).To(ContainSubstring("&lt;script&gt;"))
	})
})

var _ = Describe("Write", func() {
	var dir string
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "report-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
	})

	It("writes the three timestamped files", func() {
		summary, entries := aggregator.Aggregate(sampleResults())
		out := filepath.Join(dir, "nested", "results")

		files, err := report.Write(report.Options{Dir: out, Results: true, Summary: true, HTML: true}, at, summary, entries)
		Expect(err).NotTo(HaveOccurred())

		Expect(files.Results).To(Equal(filepath.Join(out, "result_20260304_050607.json")))
		Expect(files.Summary).To(Equal(filepath.Join(out, "summary_20260304_050607.json")))
		Expect(files.HTML).To(Equal(filepath.Join(out, "report_20260304_050607.html")))
		for _, path := range []string{files.Results, files.Summary, files.HTML} {
			Expect(path).To(BeAnExistingFile())
		}

		raw, err := os.ReadFile(files.Summary)
		Expect(err).NotTo(HaveOccurred())
		var decoded map[string]any
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKey("overall_summary"))
		Expect(decoded).To(HaveKey("conversation_summaries"))
	})

	It("skips switched off files", func() {
		summary, entries := aggregator.Aggregate(sampleResults())

		files, err := report.Write(report.Options{Dir: dir, Summary: true}, at, summary, entries)
		Expect(err).NotTo(HaveOccurred())
		Expect(files.Results).To(BeEmpty())
		Expect(files.HTML).To(BeEmpty())

		listing, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(listing).To(HaveLen(1))
	})

	It("writes an empty list for a run without results", func() {
		summary, entries := aggregator.Aggregate(nil)

		files, err := report.Write(report.Options{Dir: dir, Results: true}, at, summary, entries)
		Expect(err).NotTo(HaveOccurred())

		raw, err := os.ReadFile(files.Results)
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.TrimSpace(string(raw))).To(Equal("[]"))
	})

	It("reloads a results file with the same summary", func() {
		summary, entries := aggregator.Aggregate(sampleResults())
		files, err := report.Write(report.Options{Dir: dir, Results: true}, at, summary, entries)
		Expect(err).NotTo(HaveOccurred())

		loadedSummary, loadedEntries, err := report.LoadResults(files.Results)
		Expect(err).NotTo(HaveOccurred())
		Expect(loadedSummary).To(Equal(summary))
		Expect(loadedEntries).To(HaveLen(len(entries)))
		Expect(loadedEntries[0].Conversation.ID).To(Equal("c1"))
	})

	It("rejects a results file that is not a list", func() {
		path := filepath.Join(dir, "broken.json")
		Expect(os.WriteFile(path, []byte(`{"id":"x"}`), 0o600)).To(Succeed())

		_, _, err := report.LoadResults(path)
		Expect(err).To(MatchError(ContainSubstring("parsing results")))
	})
})
