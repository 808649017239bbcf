package corpus

import (
	"sync"

	"go.uber.org/zap"
)

// Progress receives build progress. It is purely observational.
type Progress interface {
	Reset(total int)
	SetLabel(label string)
	Advance()
}

type nopProgress struct{}

func (nopProgress) Reset(int)       {}
func (nopProgress) SetLabel(string) {}
func (nopProgress) Advance()        {}

// LogProgress logs a line every N advanced rows and when the total is reached.
type LogProgress struct {
	logger *zap.Logger
	every  int

	mu    sync.Mutex
	label string
	total int
	done  int
}

// NewLogProgress creates a progress sink that logs every n rows.
func NewLogProgress(logger *zap.Logger, every int) *LogProgress {
	if logger == nil {
		logger = zap.NewNop()
	}
	if every < 1 {
		every = 1
	}
	return &LogProgress{logger: logger, every: every}
}

// Reset implements Progress.
func (p *LogProgress) Reset(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.done = 0
}

// SetLabel implements Progress.
func (p *LogProgress) SetLabel(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label = label
}

// Advance implements Progress.
func (p *LogProgress) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.done%p.every == 0 || p.done == p.total {
		p.logger.Info("progress",
			zap.String("label", p.label),
			zap.Int("done", p.done),
			zap.Int("total", p.total),
		)
	}
}

// Done returns the number of rows advanced since the last Reset.
func (p *LogProgress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}
