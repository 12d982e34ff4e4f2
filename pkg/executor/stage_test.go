package executor_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/dispatch"
	"github.com/papercomputeco/judgebench/pkg/executor"
	"github.com/papercomputeco/judgebench/pkg/llm"
	"github.com/papercomputeco/judgebench/pkg/llm/client"
	"github.com/papercomputeco/judgebench/pkg/utils"
	testutils "github.com/papercomputeco/judgebench/pkg/utils/test"
)

func single(id, prompt string) bench.PromptItem {
	return bench.NewSingle(id, []llm.Message{llm.NewTextMessage(llm.RoleUser, prompt)}, nil)
}

func newStage(mock *testutils.MockLLM, batchSize uint, observer executor.Observer) *executor.Stage {
	c, err := client.NewHTTPClient(&client.HTTPConfig{Endpoint: mock.URL(), APIKey: "key"})
	Expect(err).NotTo(HaveOccurred())

	d, err := dispatch.New(&dispatch.Config{
		Client:      c,
		Model:       "target",
		MaxRetries:  dispatch.DefaultMaxRetries,
		BackoffBase: time.Millisecond,
	})
	Expect(err).NotTo(HaveOccurred())

	stage, err := executor.NewStage(&executor.Config{
		Sender:    d,
		BatchSize: batchSize,
		Observer:  observer,
	})
	Expect(err).NotTo(HaveOccurred())
	return stage
}

var _ = Describe("Stage", func() {
	var (
		ctx  context.Context
		mock *testutils.MockLLM
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if mock != nil {
			mock.Close()
			mock = nil
		}
	})

	It("requires a sender", func() {
		_, err := executor.NewStage(&executor.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("stops a conversation after a failed turn", func() {
		mock = testutils.NewMockLLM(func(req *llm.ChatRequest, _ int) testutils.Reply {
			if testutils.LastUserMessage(req) == "bye" {
				return testutils.Status(http.StatusInternalServerError, "server exploded")
			}
			return testutils.Answer("hello there")
		})

		items := []bench.PromptItem{bench.NewConversation("c1", turns("hi", "bye"))}
		results, err := newStage(mock, 5, nil).Run(ctx, items)
		Expect(err).NotTo(HaveOccurred())

		Expect(results).To(HaveLen(2))
		Expect(results[0].ID).To(Equal("c1-turn-1"))
		Expect(*results[0].Actual).To(Equal("hello there"))
		Expect(results[0].Error).To(BeNil())

		Expect(results[1].ID).To(Equal("c1-turn-2"))
		Expect(results[1].Actual).To(BeNil())
		Expect(*results[1].Error).To(Equal("HTTP 500: server exploded"))
		Expect(mock.Calls()).To(Equal(2))
	})

	It("keeps input order with conversation turns contiguous", func() {
		mock = testutils.NewMockLLM(func(req *llm.ChatRequest, call int) testutils.Reply {
			// Reverse-ish completion order.
			return testutils.Reply{
				Status: http.StatusOK,
				Body:   testutils.ChatBody("ok " + testutils.LastUserMessage(req)),
				Delay:  time.Duration(10-min(call, 9)) * time.Millisecond,
			}
		})

		items := []bench.PromptItem{
			single("p1", "first"),
			bench.NewConversation("c1", turns("a", "b", "c")),
			{ID: "bad"},
			single("p2", "second"),
			bench.NewConversation("c2", turns("x", "y")),
		}

		results, err := newStage(mock, 3, nil).Run(ctx, items)
		Expect(err).NotTo(HaveOccurred())

		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		Expect(ids).To(Equal([]string{
			"p1",
			"c1-turn-1", "c1-turn-2", "c1-turn-3",
			"bad",
			"p2",
			"c2-turn-1", "c2-turn-2",
		}))
		Expect(*results[0].Actual).To(Equal("ok first"))
		Expect(results[0].UserMessage).To(Equal("first"))
	})

	It("records invalid items without calling the model", func() {
		mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
			return testutils.Answer("unused")
		})

		results, err := newStage(mock, 2, nil).Run(ctx, []bench.PromptItem{{ID: "bad"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].ID).To(Equal("bad"))
		Expect(*results[0].Error).To(Equal(bench.InvalidItemError))
		Expect(results[0].Actual).To(BeNil())
		Expect(results[0].Latency).To(BeZero())
		Expect(mock.Calls()).To(BeZero())
	})

	It("never has more requests in flight than the batch size", func() {
		mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
			return testutils.Reply{Status: http.StatusOK, Body: testutils.ChatBody("ok"), Delay: 30 * time.Millisecond}
		})

		var items []bench.PromptItem
		for i := range 8 {
			items = append(items, single(bench.TurnID("p", i), "q"))
		}
		items = append(items,
			bench.NewConversation("c1", turns("a", "b", "c")),
			bench.NewConversation("c2", turns("a", "b", "c")),
		)

		results, err := newStage(mock, 2, nil).Run(ctx, items)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(14))
		Expect(mock.MaxInFlight()).To(BeNumerically("<=", 2))
		Expect(mock.MaxInFlight()).To(BeNumerically(">=", 1))
	})

	It("gives every result exactly one of actual and error", func() {
		mock = testutils.NewMockLLM(func(_ *llm.ChatRequest, call int) testutils.Reply {
			if call%3 == 0 {
				return testutils.Status(http.StatusBadGateway, "bad gateway")
			}
			return testutils.Answer("fine")
		})

		items := []bench.PromptItem{
			single("p1", "a"),
			single("p2", "b"),
			bench.NewConversation("c1", turns("a", "b", "c", "d")),
			{ID: "bad"},
			single("p3", "c"),
		}

		results, err := newStage(mock, 1, nil).Run(ctx, items)
		Expect(err).NotTo(HaveOccurred())
		for _, r := range results {
			Expect(r.Actual == nil).NotTo(Equal(r.Error == nil), r.ID)
		}
	})

	It("notifies the observer of every result", func() {
		mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
			return testutils.Answer("ok")
		})

		var seen atomic.Int32
		observer := func(bench.TurnResult) { seen.Add(1) }

		items := []bench.PromptItem{
			single("p1", "a"),
			bench.NewConversation("c1", turns("a", "b")),
			{ID: "bad"},
		}
		Expect(executor.CountTurns(items)).To(Equal(4))

		results, err := newStage(mock, 2, observer).Run(ctx, items)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		Expect(int(seen.Load())).To(Equal(4))
	})

	It("returns the partial results and an error when the context ends", func() {
		mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
			return testutils.Answer("ok")
		})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		items := []bench.PromptItem{
			single("p1", "a"),
			bench.NewConversation("c1", turns("a", "b")),
		}
		results, err := newStage(mock, 2, nil).Run(cancelled, items)
		Expect(err).To(MatchError(context.Canceled))
		Expect(results).To(HaveLen(2))
		for _, r := range results {
			Expect(r.Failed()).To(BeTrue())
		}
		Expect(results[1].ID).To(Equal("c1-turn-1"))
		Expect(mock.Calls()).To(BeZero())
	})

	It("carries expected answers through to the results", func() {
		mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
			return testutils.Answer("4")
		})

		item := bench.NewSingle("math", []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "2+2?"),
		}, utils.Ptr("4"))

		results, err := newStage(mock, 1, nil).Run(ctx, []bench.PromptItem{item})
		Expect(err).NotTo(HaveOccurred())
		Expect(*results[0].Expected).To(Equal("4"))
		Expect(results[0].UserMessage).To(Equal("2+2?"))
		Expect(results[0].ConversationID).To(BeNil())
		Expect(results[0].Turn).To(BeNil())
	})
})
