package grabber

import "sync"

const bytesPerMB = 1024 * 1024

// Statistics is the aggregated result of a dispatch.
type Statistics struct {
	Downloaded int
	Skipped    int
	Failed     int
	TotalBytes int64
	// Sizes holds the byte size of every successful download.
	Sizes []int64
}

// TotalMB reports TotalBytes in mebibytes.
func (s Statistics) TotalMB() float64 {
	return float64(s.TotalBytes) / bytesPerMB
}

// Attempted is the number of outcomes recorded.
func (s Statistics) Attempted() int {
	return s.Downloaded + s.Skipped + s.Failed
}

// Accumulator collects Outcomes from concurrent workers. It is append-only and
// safe for concurrent use.
type Accumulator struct {
	mu    sync.Mutex
	stats Statistics
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Record folds one outcome into the totals.
func (a *Accumulator) Record(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case o.Success:
		a.stats.Downloaded++
		a.stats.TotalBytes += o.Bytes
		a.stats.Sizes = append(a.stats.Sizes, o.Bytes)
	case o.Skipped:
		a.stats.Skipped++
	default:
		a.stats.Failed++
	}
}

// Snapshot returns a copy of the current totals.
func (a *Accumulator) Snapshot() Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.stats
	out.Sizes = append([]int64(nil), a.stats.Sizes...)
	return out
}
