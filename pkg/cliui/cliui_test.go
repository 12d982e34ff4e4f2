package cliui_test

import (
	"bytes"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/judgebench/pkg/cliui"
)

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below one second", func() {
		Expect(cliui.FormatDuration(250 * time.Millisecond)).To(Equal("250ms"))
	})

	It("uses seconds with one decimal otherwise", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Step", func() {
	It("reports the result of fn", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		Expect(cliui.Step(&buf, "loading prompts", func() error { return nil })).To(Succeed())
		Expect(cliui.Step(&buf, "failing", func() error { return boom })).To(MatchError(boom))

		Expect(buf.String()).To(ContainSubstring("loading prompts"))
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})
})

var _ = Describe("Progress", func() {
	It("counts concurrent increments", func() {
		var buf bytes.Buffer
		p := cliui.NewProgress(&buf, 20, "executing")

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Increment()
			}()
		}
		wg.Wait()

		Expect(p.Count()).To(BeEquivalentTo(20))
		p.Finish()
		Expect(buf.Len()).To(BeNumerically(">", 0))
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("renders headings and keeps the text", func() {
		out, err := cliui.RenderMarkdown("# Report\n\nall good")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Report"))
		Expect(out).To(ContainSubstring("all good"))
	})
})
