package cliui

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Progress counts finished work items of one pipeline stage. Add may be
// called from several goroutines.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress starts a progress bar on w for total items.
func NewProgress(w io.Writer, total int, description string) *Progress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	return &Progress{bar: bar}
}

// Increment records one finished item.
func (p *Progress) Increment() {
	_ = p.bar.Add(1)
}

// Count is the number of items recorded so far.
func (p *Progress) Count() int64 {
	return p.bar.State().CurrentNum
}

// Finish completes the bar. A conversation that stopped early produces fewer
// items than planned, so the bar is filled rather than left short.
func (p *Progress) Finish() {
	_ = p.bar.Finish()
}
