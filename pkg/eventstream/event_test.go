package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/aggregator"
	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/eventstream"
	"github.com/papercomputeco/judgebench/pkg/utils"
)

var _ = Describe("Event", func() {
	source := eventstream.EventSource{RunID: "run-1", TargetModel: "target", JudgeModel: "judge"}

	It("marshals RunCompletedEvent with expected top-level keys", func() {
		started := time.Unix(1735689600, 0).UTC()
		completed := started.Add(90 * time.Second)
		summary, _ := aggregator.Aggregate(nil)

		event := eventstream.NewRunCompletedEvent(source, "completed", started, completed, &summary)
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeRunCompleted))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.DurationMs).To(Equal(int64(90000)))

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("summary"))
		Expect(got).NotTo(HaveKey("error"))
		Expect(got["source"]).To(HaveKeyWithValue("run_id", "run-1"))
	})

	It("marshals ResultEvaluatedEvent with the flattened result", func() {
		result := bench.EvaluatedResult{
			TurnResult: bench.TurnResult{ID: "p1", Actual: utils.Ptr("4")},
			Score:      utils.Ptr(1.0),
		}

		event := eventstream.NewResultEvaluatedEvent(source, result)
		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got["event_type"]).To(Equal(eventstream.EventTypeResultEvaluated))
		Expect(got["result"]).To(HaveKeyWithValue("id", "p1"))
		Expect(got["result"]).To(HaveKeyWithValue("score", 1.0))
	})

	It("gives every event its own ID", func() {
		a := eventstream.NewResultEvaluatedEvent(source, bench.EvaluatedResult{})
		b := eventstream.NewResultEvaluatedEvent(source, bench.EvaluatedResult{})
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeRunCompleted).To(Equal("judgebench.run.completed"))
		Expect(eventstream.EventTypeResultEvaluated).To(Equal("judgebench.result.evaluated"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
