package operations

import (
	"context"
	"sync"
	"time"
)

// ProgressFunc receives step lifecycle and progress updates. It is called
// synchronously from the executing goroutine and must not block.
type ProgressFunc func(ProgressUpdate)

type progressKey struct{}

type stepReporter func(progress float64, message string)

func withStepReporter(ctx context.Context, r stepReporter) context.Context {
	return context.WithValue(ctx, progressKey{}, r)
}

// ReportProgress reports the progress of the step running under ctx.
// Outside a managed step it does nothing.
func ReportProgress(ctx context.Context, progress float64, message string) {
	if r, ok := ctx.Value(progressKey{}).(stepReporter); ok && r != nil {
		r(progress, message)
	}
}

// ProgressTracker counts work items inside a step and reports a percentage
type ProgressTracker struct {
	ctx       context.Context
	Total     int
	Current   int
	StartTime time.Time
	mu        sync.Mutex
}

// NewProgressTracker creates a new progress tracker for total items
func NewProgressTracker(ctx context.Context, total int) *ProgressTracker {
	return &ProgressTracker{
		ctx:       ctx,
		Total:     total,
		StartTime: time.Now(),
	}
}

// Increment marks one more item as done and reports progress
func (p *ProgressTracker) Increment(message string) {
	p.mu.Lock()
	p.Current++
	pct := p.percentage()
	p.mu.Unlock()

	ReportProgress(p.ctx, pct, message)
}

// Percentage returns the completed share in [0, 100]
func (p *ProgressTracker) Percentage() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percentage()
}

func (p *ProgressTracker) percentage() float64 {
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Current) / float64(p.Total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// IsComplete returns true once every item is done
func (p *ProgressTracker) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Current >= p.Total
}

// Elapsed returns the time since the tracker was created
func (p *ProgressTracker) Elapsed() time.Duration {
	return time.Since(p.StartTime)
}
