// Package storagetest holds the behaviour every storage.Driver must share,
// written as ginkgo specs that each backend's suite registers.
package storagetest

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/aggregator"
	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/storage"
	"github.com/papercomputeco/judgebench/pkg/utils"
)

// NewRun builds a completed run with one conversation and one standalone
// result, created at the given time.
func NewRun(id string, createdAt time.Time) *storage.Run {
	results := []bench.EvaluatedResult{
		{
			TurnResult: bench.TurnResult{
				ID:             "c1-turn-1",
				ConversationID: utils.Ptr("c1"),
				Turn:           utils.Ptr(1),
				UserMessage:    "hi",
				Actual:         utils.Ptr("hello"),
				Latency:        0.5,
			},
			Score:          utils.Ptr(0.9),
			ScoreReasoning: utils.Ptr("friendly"),
		},
		{
			TurnResult: bench.TurnResult{
				ID:          "p1",
				UserMessage: "2+2?",
				Expected:    utils.Ptr("4"),
				Error:       utils.Ptr("HTTP 500: boom"),
			},
			ScoreReasoning: utils.Ptr("Evaluation skipped: execution error"),
		},
	}
	summary, entries := aggregator.Aggregate(results)

	created := createdAt.UTC()
	started := created.Add(time.Second)
	completed := created.Add(time.Minute)
	return &storage.Run{
		ID:          id,
		Status:      storage.StatusCompleted,
		CreatedAt:   created,
		StartedAt:   &started,
		CompletedAt: &completed,
		TargetModel: "target",
		JudgeModel:  "judge",
		Summary:     &summary,
		Results:     entries,
	}
}

// DescribeDriver registers the shared driver specs. newDriver is called
// before each test and the driver is closed after it.
func DescribeDriver(name string, newDriver func() storage.Driver) bool {
	return Describe(name+" driver behaviour", func() {
		var (
			driver storage.Driver
			ctx    context.Context
			base   time.Time
		)

		BeforeEach(func() {
			ctx = context.Background()
			base = time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
			driver = nil
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("stores and retrieves a run with its results", func() {
			run := NewRun("run-1", base)
			Expect(driver.Put(ctx, run)).To(Succeed())

			got, err := driver.Get(ctx, "run-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(run))
		})

		It("replaces a run stored under the same ID", func() {
			run := &storage.Run{ID: "run-1", Status: storage.StatusRunning, CreatedAt: base}
			Expect(driver.Put(ctx, run)).To(Succeed())

			done := NewRun("run-1", base)
			done.Status = storage.StatusFailed
			done.Error = "execution interrupted"
			Expect(driver.Put(ctx, done)).To(Succeed())

			got, err := driver.Get(ctx, "run-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(storage.StatusFailed))
			Expect(got.Error).To(Equal("execution interrupted"))
			Expect(got.Results).To(HaveLen(2))
		})

		It("keeps optional fields empty", func() {
			run := &storage.Run{ID: "queued", Status: storage.StatusQueued, CreatedAt: base}
			Expect(driver.Put(ctx, run)).To(Succeed())

			got, err := driver.Get(ctx, "queued")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.StartedAt).To(BeNil())
			Expect(got.CompletedAt).To(BeNil())
			Expect(got.Summary).To(BeNil())
			Expect(got.Results).To(BeNil())
		})

		It("returns NotFoundError for a missing run", func() {
			_, err := driver.Get(ctx, "missing")
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.ID).To(Equal("missing"))
		})

		It("rejects runs without an ID or status", func() {
			Expect(driver.Put(ctx, &storage.Run{Status: storage.StatusQueued})).NotTo(Succeed())
			Expect(driver.Put(ctx, &storage.Run{ID: "x"})).NotTo(Succeed())
			Expect(driver.Put(ctx, nil)).NotTo(Succeed())
		})

		It("lists runs newest first without results", func() {
			for i, id := range []string{"old", "new", "mid"} {
				offset := map[int]time.Duration{0: 0, 1: 2 * time.Hour, 2: time.Hour}[i]
				Expect(driver.Put(ctx, NewRun(id, base.Add(offset)))).To(Succeed())
			}

			runs, err := driver.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(3))
			Expect(runs[0].ID).To(Equal("new"))
			Expect(runs[1].ID).To(Equal("mid"))
			Expect(runs[2].ID).To(Equal("old"))
			Expect(runs[0].Results).To(BeNil())
			Expect(runs[0].Summary).NotTo(BeNil())

			limited, err := driver.List(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(limited).To(HaveLen(2))
			Expect(limited[1].ID).To(Equal("mid"))
		})

		It("lists nothing from an empty store", func() {
			runs, err := driver.List(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(BeEmpty())
		})

		It("deletes runs", func() {
			Expect(driver.Put(ctx, NewRun("run-1", base))).To(Succeed())
			Expect(driver.Delete(ctx, "run-1")).To(Succeed())

			_, err := driver.Get(ctx, "run-1")
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
			Expect(driver.Delete(ctx, "run-1")).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})
	})
}
