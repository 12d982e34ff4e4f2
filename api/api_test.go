package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/llm"
	"github.com/papercomputeco/judgebench/pkg/logger"
	"github.com/papercomputeco/judgebench/pkg/pipeline"
	"github.com/papercomputeco/judgebench/pkg/storage"
	"github.com/papercomputeco/judgebench/pkg/storage/inmemory"
	"github.com/papercomputeco/judgebench/pkg/utils"
)

// echoExecutor answers every turn with its user message. When gate is set it
// blocks until the gate closes or the context ends.
type echoExecutor struct {
	gate chan struct{}
}

func (e *echoExecutor) Run(ctx context.Context, items []bench.PromptItem) ([]bench.TurnResult, error) {
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	results := make([]bench.TurnResult, 0, len(items))
	for _, item := range items {
		if item.Kind == bench.KindInvalid {
			results = append(results, bench.TurnResult{ID: item.ID, Error: utils.Ptr(bench.InvalidItemError)})
			continue
		}
		msg := item.UserMessage()
		results = append(results, bench.TurnResult{
			ID:          item.ID,
			UserMessage: msg,
			Expected:    item.Expected,
			Actual:      utils.Ptr(msg),
		})
	}
	return results, nil
}

type perfectJudge struct{}

func (perfectJudge) Evaluate(_ context.Context, results []bench.TurnResult) ([]bench.EvaluatedResult, error) {
	out := make([]bench.EvaluatedResult, len(results))
	for i, r := range results {
		out[i] = bench.EvaluatedResult{TurnResult: r}
		if !r.Failed() {
			out[i].Score = utils.Ptr(1.0)
			out[i].ScoreReasoning = utils.Ptr("exact")
		}
	}
	return out, nil
}

const twoPrompts = `[
  {"id": "p1", "messages": [{"role": "user", "content": "2+2?"}], "expected": "4"},
  {"id": "p2", "messages": [{"role": "user", "content": "3+3?"}], "expected": "6"}
]`

var _ = Describe("Server", func() {
	var (
		server *Server
		store  storage.Driver
		exec   *echoExecutor
	)

	BeforeEach(func() {
		store = inmemory.NewDriver()
		exec = &echoExecutor{}

		p, err := pipeline.New(&pipeline.Config{
			Executor:  exec,
			Evaluator: perfectJudge{},
			Storage:   store,
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{ListenAddr: ":0"}, p, store, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if exec.gate != nil {
			select {
			case <-exec.gate:
			default:
				close(exec.gate)
			}
		}
		Expect(server.Shutdown()).To(Succeed())
	})

	do := func(method, target, contentType, body string) (*http.Response, []byte) {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, r)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, data
	}

	create := func(contentType, body string) CreateRunResponse {
		resp, data := do(http.MethodPost, "/v1/runs", contentType, body)
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted), string(data))

		var created CreateRunResponse
		Expect(json.Unmarshal(data, &created)).To(Succeed())
		Expect(resp.Header.Get("Location")).To(Equal("/v1/runs/" + created.ID))
		return created
	}

	getRun := func(id string) storage.Run {
		resp, data := do(http.MethodGet, "/v1/runs/"+id, "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK), string(data))

		var run storage.Run
		Expect(json.Unmarshal(data, &run)).To(Succeed())
		return run
	}

	It("rejects a missing pipeline or storage", func() {
		_, err := NewServer(Config{}, nil, store, logger.Nop())
		Expect(err).To(HaveOccurred())

		p, err := pipeline.New(&pipeline.Config{Executor: exec, Evaluator: perfectJudge{}})
		Expect(err).NotTo(HaveOccurred())
		_, err = NewServer(Config{}, p, nil, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("storage is required")))
	})

	It("answers ping", func() {
		resp, data := do(http.MethodGet, "/ping", "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(data)).To(Equal(`"pong"`))
	})

	It("runs a submitted prompt list to completion", func() {
		created := create(jsonContentType, twoPrompts)
		Expect(created.Status).To(Equal(storage.StatusQueued))
		Expect(created.Items).To(Equal(2))

		Eventually(func() storage.Status {
			return getRun(created.ID).Status
		}).Should(Equal(storage.StatusCompleted))

		run := getRun(created.ID)
		Expect(run.Summary).NotTo(BeNil())
		Expect(run.Summary.OverallSummary.TotalItemsProcessed).To(Equal(2))
		Expect(run.Summary.OverallSummary.ScoredItems).To(Equal(2))
		Expect(run.Results).To(HaveLen(2))
		Expect(run.CreatedAt).NotTo(BeZero())
	})

	It("accepts a prompts envelope and YAML documents", func() {
		created := create(jsonContentType, `{"prompts": `+twoPrompts+`}`)
		Expect(created.Items).To(Equal(2))

		yamlDoc := "- id: y1\n  messages:\n    - role: user\n      content: hi\n"
		created = create("application/yaml", yamlDoc)
		Expect(created.Items).To(Equal(1))
	})

	It("reports invalid items without rejecting the run", func() {
		created := create(jsonContentType, `[{"id": "ok", "messages": [{"role": "user", "content": "hi"}]}, {"id": "bad"}]`)
		Expect(created.Items).To(Equal(2))
		Expect(created.Problems).To(HaveLen(1))
		Expect(created.Problems[0]).To(ContainSubstring("bad"))

		Eventually(func() storage.Status {
			return getRun(created.ID).Status
		}).Should(Equal(storage.StatusCompleted))
		Expect(getRun(created.ID).Summary.OverallSummary.ErrorItems).To(Equal(1))
	})

	DescribeTable("rejects unusable bodies",
		func(contentType, body string) {
			resp, data := do(http.MethodPost, "/v1/runs", contentType, body)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var e llm.ErrorResponse
			Expect(json.Unmarshal(data, &e)).To(Succeed())
			Expect(e.Error).NotTo(BeEmpty())
		},
		Entry("empty body", jsonContentType, ""),
		Entry("object without prompts", jsonContentType, `{"items": []}`),
		Entry("malformed JSON", jsonContentType, `{"prompts": [`),
		Entry("not a list", jsonContentType, `"hello"`),
		Entry("empty list", jsonContentType, `[]`),
	)

	It("returns 404 for unknown runs", func() {
		resp, _ := do(http.MethodGet, "/v1/runs/missing", "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

		resp, _ = do(http.MethodDelete, "/v1/runs/missing", "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("lists runs and deletes finished ones", func() {
		first := create(jsonContentType, twoPrompts)
		second := create(jsonContentType, twoPrompts)
		for _, id := range []string{first.ID, second.ID} {
			Eventually(func() storage.Status {
				return getRun(id).Status
			}).Should(Equal(storage.StatusCompleted))
		}

		resp, data := do(http.MethodGet, "/v1/runs", "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var list ListRunsResponse
		Expect(json.Unmarshal(data, &list)).To(Succeed())
		Expect(list.Count).To(Equal(2))
		for _, r := range list.Runs {
			Expect(r.Results).To(BeEmpty())
		}

		resp, _ = do(http.MethodGet, "/v1/runs?limit=1", "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp, _ = do(http.MethodDelete, "/v1/runs/"+first.ID, "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		resp, _ = do(http.MethodGet, "/v1/runs/"+first.ID, "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("refuses to delete a run in progress", func() {
		exec.gate = make(chan struct{})
		created := create(jsonContentType, twoPrompts)

		Eventually(func() storage.Status {
			return getRun(created.ID).Status
		}).Should(Equal(storage.StatusRunning))

		resp, _ := do(http.MethodDelete, "/v1/runs/"+created.ID, "", "")
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))

		close(exec.gate)
		Eventually(func() storage.Status {
			return getRun(created.ID).Status
		}).Should(Equal(storage.StatusCompleted))
	})

	It("marks in-flight runs failed on shutdown", func() {
		exec.gate = make(chan struct{})
		created := create(jsonContentType, twoPrompts)

		Eventually(func() storage.Status {
			return getRun(created.ID).Status
		}).Should(Equal(storage.StatusRunning))

		server.cancel()
		server.runs.Wait()

		run, err := store.Get(context.Background(), created.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Status).To(Equal(storage.StatusFailed))
		Expect(run.Error).To(ContainSubstring("context canceled"))
	})
})

const jsonContentType = "application/json"
