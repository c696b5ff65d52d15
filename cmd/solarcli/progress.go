package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"solarcli/internal/operations"
)

// stepProgress renders manager progress updates as one bar spanning all
// selected steps
type stepProgress struct {
	bar *progressbar.ProgressBar
}

func newStepProgress(w io.Writer) *stepProgress {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
	return &stepProgress{bar: bar}
}

// Update is an operations.ProgressFunc
func (p *stepProgress) Update(u operations.ProgressUpdate) {
	if u.Total <= 0 {
		return
	}
	p.bar.Describe(fmt.Sprintf("[%d/%d] %s", u.Index+1, u.Total, u.StepName))
	_ = p.bar.Set(overallPercent(u))
}

// Finish completes the bar
func (p *stepProgress) Finish() {
	_ = p.bar.Finish()
}

// overallPercent maps a step update onto the whole run
func overallPercent(u operations.ProgressUpdate) int {
	if u.Total <= 0 {
		return 0
	}
	fraction := u.Progress / 100
	switch u.Status {
	case operations.StepStatusCompleted, operations.StepStatusFailed, operations.StepStatusSkipped:
		fraction = 1
	}
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	return int((float64(u.Index) + fraction) / float64(u.Total) * 100)
}
