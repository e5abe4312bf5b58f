package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// BackfillProgress reports periodic movement backfills on a progress bar.
type BackfillProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

// NewBackfillProgress creates a progress reporter that writes to w.
func NewBackfillProgress(w io.Writer) *BackfillProgress {
	return &BackfillProgress{writer: w}
}

// Start shows a bar for total pending movements. Nothing is drawn when there
// is nothing to backfill.
func (p *BackfillProgress) Start(total int) {
	if total <= 0 {
		p.bar = nil
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan][bold]Posting periodic movements...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// Advance moves the bar one step for concept.
func (p *BackfillProgress) Advance(concept string) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("[cyan]%s[reset]", concept))
	if err := p.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar.
func (p *BackfillProgress) Finish() {
	if p.bar == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
	p.bar = nil
}
