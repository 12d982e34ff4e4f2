package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/eventstream"
	"github.com/papercomputeco/judgebench/pkg/eventstream/kafka"
)

var _ = Describe("Publisher", func() {
	var (
		ctx    context.Context
		writer *kafka.RecordingWriter
		pub    *kafka.Publisher
		source eventstream.EventSource
	)

	BeforeEach(func() {
		ctx = context.Background()
		writer = &kafka.RecordingWriter{}
		pub = kafka.NewPublisherWithWriter(writer)
		source = eventstream.EventSource{RunID: "run-1"}
	})

	It("requires brokers", func() {
		_, err := kafka.NewPublisher(&kafka.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("builds a writer without connecting", func() {
		p, err := kafka.NewPublisher(&kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})

	It("writes run events keyed by run ID", func() {
		now := time.Now()
		event := eventstream.NewRunCompletedEvent(source, "completed", now, now, nil)
		Expect(pub.PublishRun(ctx, event)).To(Succeed())

		Expect(writer.Messages).To(HaveLen(1))
		msg := writer.Messages[0]
		Expect(string(msg.Key)).To(Equal("run-1"))
		Expect(msg.Headers).To(HaveLen(1))
		Expect(msg.Headers[0].Key).To(Equal("event_type"))
		Expect(string(msg.Headers[0].Value)).To(Equal(eventstream.EventTypeRunCompleted))

		var decoded eventstream.RunCompletedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
	})

	It("writes result events", func() {
		event := eventstream.NewResultEvaluatedEvent(source, bench.EvaluatedResult{
			TurnResult: bench.TurnResult{ID: "p1"},
		})
		Expect(pub.PublishResult(ctx, event)).To(Succeed())
		Expect(string(writer.Messages[0].Headers[0].Value)).To(Equal(eventstream.EventTypeResultEvaluated))
	})

	It("rejects nil events", func() {
		Expect(pub.PublishRun(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(pub.PublishResult(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(writer.Messages).To(BeEmpty())
	})

	It("wraps write failures", func() {
		writer.Err = errors.New("broker unavailable")
		err := pub.PublishRun(ctx, eventstream.NewRunCompletedEvent(source, "failed", time.Now(), time.Now(), nil))
		Expect(err).To(MatchError(ContainSubstring("broker unavailable")))
		Expect(errors.Is(err, writer.Err)).To(BeTrue())
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.Closed).To(BeTrue())
	})
})
