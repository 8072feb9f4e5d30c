package transfer

import (
	"time"

	"github.com/cheggaaa/pb/v3"
)

// BatchProgress renders a terminal progress bar over the items of one
// transfer batch
type BatchProgress struct {
	bar       *pb.ProgressBar
	quiet     bool
	startTime time.Time
}

// NewBatchProgress creates a progress bar for total items; quiet disables
// all rendering
func NewBatchProgress(total int, quiet bool) *BatchProgress {
	p := &BatchProgress{
		quiet:     quiet,
		startTime: time.Now(),
	}
	if !quiet && total > 0 {
		tmpl := `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{rtime . "ETA %s"}}`
		bar := pb.ProgressBarTemplate(tmpl).Start(total)
		bar.Set("prefix", "Transferring: ")
		p.bar = bar
	}
	return p
}

// Increment advances the bar by one item
func (p *BatchProgress) Increment() {
	if p.bar != nil {
		p.bar.Increment()
	}
}

// Finish stops the bar and returns the elapsed wall time
func (p *BatchProgress) Finish() time.Duration {
	if p.bar != nil {
		p.bar.Finish()
	}
	return time.Since(p.startTime)
}
