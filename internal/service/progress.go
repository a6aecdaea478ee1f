package service

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// ProgressReporter receives embedding progress during ingest.
type ProgressReporter interface {
	Start(total int)
	Advance(n int)
	Finish()
}

// BarReporter renders a terminal progress bar on stderr. Disabled it is a
// no-op, which also serves non-interactive runs.
type BarReporter struct {
	enabled bool
	bar     *progressbar.ProgressBar
}

func NewBarReporter(enabled bool) *BarReporter {
	return &BarReporter{enabled: enabled}
}

func (p *BarReporter) Start(total int) {
	if !p.enabled || total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("embedding"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *BarReporter) Advance(n int) {
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

func (p *BarReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
