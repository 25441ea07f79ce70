package pipeline

import (
	"github.com/cheggaaa/pb/v3"
)

type progress struct {
	bar *pb.ProgressBar
}

func (r *Runner) startProgress(total int) *progress {
	if !r.Options.ShowProgress {
		return &progress{}
	}
	return &progress{bar: newProgressBar(total)}
}

func (p *progress) increment() {
	if p.bar != nil {
		p.bar.Increment()
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}

func newProgressBar(total int) *pb.ProgressBar {
	template := `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.01f%%" "?"}} {{etime . "%s elapsed"}} {{rtime . "%s remain" "%s total" "???"}}`

	bar := pb.ProgressBarTemplate(template).Start(total)
	bar.Set("prefix", "videos")

	return bar
}
