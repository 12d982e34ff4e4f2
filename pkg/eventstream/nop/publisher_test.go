package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/eventstream"
	"github.com/papercomputeco/judgebench/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	var _ eventstream.Publisher = nop.NewPublisher()

	It("creates a non-nil publisher", func() {
		p := nop.NewPublisher()
		Expect(p).NotTo(BeNil())
	})

	It("returns ErrNilEvent for nil events", func() {
		p := nop.NewPublisher()
		Expect(p.PublishRun(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(p.PublishResult(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()
		Expect(p.PublishRun(context.Background(), &eventstream.RunCompletedEvent{})).To(Succeed())
		Expect(p.PublishResult(context.Background(), &eventstream.ResultEvaluatedEvent{})).To(Succeed())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
