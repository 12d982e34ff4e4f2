package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/storage"
	"github.com/papercomputeco/judgebench/pkg/storage/inmemory"
	"github.com/papercomputeco/judgebench/pkg/storage/storagetest"
)

var _ = storagetest.DescribeDriver("inmemory", func() storage.Driver {
	return inmemory.NewDriver()
})

var _ = Describe("Driver", func() {
	It("does not share results with the caller", func() {
		ctx := context.Background()
		driver := inmemory.NewDriver()

		run := storagetest.NewRun("run-1", time.Now())
		Expect(driver.Put(ctx, run)).To(Succeed())
		run.Results[0] = run.Results[1]
		run.Status = storage.StatusFailed

		got, err := driver.Get(ctx, "run-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(storage.StatusCompleted))
		Expect(got.Results[0].IsConversation()).To(BeTrue())
	})
})
