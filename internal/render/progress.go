package render

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Progress observes a multi-step rendering stage. Implementations must
// tolerate Add being called from concurrent tile downloads.
type Progress interface {
	Start(label string, total int)
	Add(n int)
	Finish()
}

// NopProgress reports nothing.
type NopProgress struct{}

func (NopProgress) Start(string, int) {}
func (NopProgress) Add(int)           {}
func (NopProgress) Finish()           {}

// BarProgress renders a terminal progress bar for the current stage.
type BarProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewBarProgress creates a progress bar writing to out.
func NewBarProgress(out io.Writer) *BarProgress {
	return &BarProgress{out: out}
}

// Start begins a new stage, replacing any previous bar.
func (p *BarProgress) Start(label string, total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// Add advances the current stage. progressbar's counter is goroutine-safe.
func (p *BarProgress) Add(n int) {
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

// Finish completes and clears the current stage.
func (p *BarProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
