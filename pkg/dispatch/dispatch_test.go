package dispatch_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/dispatch"
	"github.com/papercomputeco/judgebench/pkg/llm"
	"github.com/papercomputeco/judgebench/pkg/llm/client"
	testutils "github.com/papercomputeco/judgebench/pkg/utils/test"
)

// unencodable is a codec whose requests never encode.
type unencodable struct{}

func (unencodable) Name() string { return "unencodable" }

func (unencodable) EncodeRequest(*llm.ChatRequest) ([]byte, error) {
	return nil, errors.New("unsupported message")
}

func (unencodable) ParseResponse([]byte) (*llm.ChatResponse, error) {
	return nil, errors.New("unreachable")
}

func newDispatcher(endpoint string, maxRetries uint) *dispatch.Dispatcher {
	c, err := client.NewHTTPClient(&client.HTTPConfig{Endpoint: endpoint, APIKey: "key"})
	Expect(err).NotTo(HaveOccurred())

	d, err := dispatch.New(&dispatch.Config{
		Client:      c,
		Model:       "target-model",
		MaxRetries:  maxRetries,
		BackoffBase: time.Millisecond,
	})
	Expect(err).NotTo(HaveOccurred())
	return d
}

var _ = Describe("Dispatcher", func() {
	var (
		ctx      context.Context
		mock     *testutils.MockLLM
		messages []llm.Message
	)

	BeforeEach(func() {
		ctx = context.Background()
		messages = []llm.Message{llm.NewTextMessage("user", "2+2?")}
	})

	AfterEach(func() {
		if mock != nil {
			mock.Close()
			mock = nil
		}
	})

	Describe("New", func() {
		It("requires a client", func() {
			_, err := dispatch.New(&dispatch.Config{Model: "m"})
			Expect(errors.Is(err, dispatch.ErrConfiguration)).To(BeTrue())
		})

		It("requires a model", func() {
			c, _ := client.NewHTTPClient(&client.HTTPConfig{Endpoint: "http://localhost"})
			_, err := dispatch.New(&dispatch.Config{Client: c})
			Expect(errors.Is(err, dispatch.ErrConfiguration)).To(BeTrue())
		})

		It("rejects a nil config", func() {
			_, err := dispatch.New(nil)
			Expect(errors.Is(err, dispatch.ErrConfiguration)).To(BeTrue())
		})
	})

	Describe("Send", func() {
		It("returns the answer and sends the configured model without streaming", func() {
			mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
				return testutils.Answer("4")
			})

			out := newDispatcher(mock.URL(), 3).Send(ctx, messages)
			Expect(out.OK()).To(BeTrue())
			Expect(out.Answer).To(Equal("4"))
			Expect(out.Attempts).To(Equal(1))
			Expect(out.Latency).To(BeNumerically(">", 0))

			reqs := mock.Requests()
			Expect(reqs).To(HaveLen(1))
			Expect(reqs[0].Model).To(Equal("target-model"))
			Expect(reqs[0].Stream).To(BeFalse())
			Expect(reqs[0].Messages).To(Equal(messages))

			headers := mock.Headers()
			Expect(headers[0].Get("Authorization")).To(Equal("Bearer key"))
			Expect(headers[0].Get(client.BearerTokenHeader)).To(Equal("key"))
		})

		It("retries 429 responses and reports only the final attempt's latency", func() {
			mock = testutils.NewMockLLM(func(_ *llm.ChatRequest, call int) testutils.Reply {
				if call <= 3 {
					return testutils.Reply{Status: http.StatusTooManyRequests, Body: "slow down", Delay: 100 * time.Millisecond}
				}
				return testutils.Answer("4")
			})

			start := time.Now()
			out := newDispatcher(mock.URL(), 3).Send(ctx, messages)
			elapsed := time.Since(start)

			Expect(out.OK()).To(BeTrue())
			Expect(out.Answer).To(Equal("4"))
			Expect(out.Attempts).To(Equal(4))
			Expect(mock.Calls()).To(Equal(4))
			Expect(elapsed).To(BeNumerically(">=", 300*time.Millisecond))
			Expect(out.Latency).To(BeNumerically("<", 100*time.Millisecond))
		})

		It("fails as rate limited once retries are exhausted", func() {
			mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
				return testutils.Status(http.StatusTooManyRequests, "slow down")
			})

			out := newDispatcher(mock.URL(), 3).Send(ctx, messages)
			Expect(out.OK()).To(BeFalse())
			Expect(out.Err.Kind).To(Equal(dispatch.KindRateLimited))
			Expect(out.Err.StatusCode).To(Equal(http.StatusTooManyRequests))
			Expect(out.Attempts).To(Equal(4))
			Expect(out.Err.Error()).To(Equal("HTTP 429: slow down"))
		})

		It("does not retry 429 when retries are disabled", func() {
			mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
				return testutils.Status(http.StatusTooManyRequests, "")
			})

			out := newDispatcher(mock.URL(), 0).Send(ctx, messages)
			Expect(out.Err.Kind).To(Equal(dispatch.KindRateLimited))
			Expect(mock.Calls()).To(Equal(1))
		})

		It("does not retry other error statuses", func() {
			mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
				return testutils.Status(http.StatusInternalServerError, "internal")
			})

			out := newDispatcher(mock.URL(), 3).Send(ctx, messages)
			Expect(out.Err.Kind).To(Equal(dispatch.KindProtocol))
			Expect(out.Err.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(out.Err.Error()).To(Equal("HTTP 500: internal"))
			Expect(mock.Calls()).To(Equal(1))
		})

		It("does not retry malformed bodies", func() {
			mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
				return testutils.Status(http.StatusOK, `{"choices":[]}`)
			})

			out := newDispatcher(mock.URL(), 3).Send(ctx, messages)
			Expect(out.Err.Kind).To(Equal(dispatch.KindProtocol))
			Expect(errors.Is(out.Err, llm.ErrMissingAnswer)).To(BeTrue())
			Expect(mock.Calls()).To(Equal(1))
		})

		It("reports a request that cannot be encoded as a protocol failure", func() {
			c, err := client.NewHTTPClient(&client.HTTPConfig{
				Endpoint: "http://localhost:1/v1/chat/completions",
				Provider: unencodable{},
			})
			Expect(err).NotTo(HaveOccurred())
			d, err := dispatch.New(&dispatch.Config{Client: c, Model: "target-model", MaxRetries: 3})
			Expect(err).NotTo(HaveOccurred())

			out := d.Send(ctx, messages)
			Expect(out.Err.Kind).To(Equal(dispatch.KindProtocol))
			Expect(out.Err.StatusCode).To(BeZero())
			Expect(out.Attempts).To(Equal(1))
			Expect(out.Err.Error()).To(HavePrefix("request error: encoding request:"))
			Expect(out.Err.Error()).NotTo(ContainSubstring("connection error"))
		})

		It("does not retry connection failures", func() {
			closed := testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
				return testutils.Answer("unreachable")
			})
			url := closed.URL()
			closed.Close()

			out := newDispatcher(url, 3).Send(ctx, messages)
			Expect(out.Err.Kind).To(Equal(dispatch.KindTransport))
			Expect(out.Attempts).To(Equal(1))
			Expect(out.Err.Error()).To(HavePrefix("connection error:"))
		})

		It("fails as a transport error when the context is already done", func() {
			mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
				return testutils.Answer("4")
			})

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			out := newDispatcher(mock.URL(), 3).Send(cancelled, messages)
			Expect(out.OK()).To(BeFalse())
			Expect(out.Err.Kind).To(Equal(dispatch.KindTransport))
			Expect(mock.Calls()).To(Equal(0))
		})

		It("spaces attempts by the request delay", func() {
			mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
				return testutils.Answer("ok")
			})

			c, err := client.NewHTTPClient(&client.HTTPConfig{Endpoint: mock.URL()})
			Expect(err).NotTo(HaveOccurred())
			d, err := dispatch.New(&dispatch.Config{
				Client:       c,
				Model:        "m",
				RequestDelay: 40 * time.Millisecond,
			})
			Expect(err).NotTo(HaveOccurred())

			start := time.Now()
			for range 3 {
				Expect(d.Send(ctx, messages).OK()).To(BeTrue())
			}
			Expect(time.Since(start)).To(BeNumerically(">=", 80*time.Millisecond))
		})

		It("does not keep a reference to the caller's messages", func() {
			mock = testutils.NewMockLLM(func(*llm.ChatRequest, int) testutils.Reply {
				return testutils.Answer("ok")
			})

			d := newDispatcher(mock.URL(), 0)
			Expect(d.Model()).To(Equal("target-model"))
			Expect(d.Send(ctx, messages).OK()).To(BeTrue())
			messages[0].Content = "changed"
			Expect(mock.Requests()[0].Messages[0].Content).To(Equal("2+2?"))
		})
	})
})
