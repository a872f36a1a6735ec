// Package dispatcher runs one worker per batch and aggregates the outcomes.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
	"github.com/JakeFAU/gallery-grabber/internal/progress"
)

// Dispatcher fans batches out to concurrent workers. Each worker handles its
// batch sequentially, in order.
type Dispatcher struct {
	writer  grabber.Writer
	emitter progress.Emitter
	clock   grabber.Clock
	runID   uuid.UUID
	logger  *zap.Logger
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithEmitter reports every outcome as a progress event tagged with runID.
func WithEmitter(emitter progress.Emitter, runID uuid.UUID) Option {
	return func(d *Dispatcher) {
		if emitter != nil {
			d.emitter = emitter
			d.runID = runID
		}
	}
}

// WithClock overrides the event clock.
func WithClock(c grabber.Clock) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher around writer.
func New(writer grabber.Writer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		writer:  writer,
		emitter: progress.NopEmitter{},
		clock:   utcClock{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type result struct {
	worker  int
	outcome grabber.Outcome
}

// Run starts exactly len(batches) workers and blocks until all of them are
// done. Outcomes are folded into the returned Statistics; no error escapes a
// worker. When ctx is canceled workers stop picking up links and the links
// they did not reach are counted as failed.
func (d *Dispatcher) Run(ctx context.Context, batches [][]grabber.Link) grabber.Statistics {
	acc := grabber.NewAccumulator()
	results := make(chan result, len(batches))
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range results {
			acc.Record(r.outcome)
			d.emitter.Emit(progress.FileEvent(d.runID, r.worker, r.outcome, d.clock.Now()))
		}
	}()

	d.logger.Info("Starting file saving workers", zap.Int("workers", len(batches)))
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(worker int, links []grabber.Link) {
			defer wg.Done()
			d.runBatch(ctx, worker, links, results)
		}(i, batch)
	}
	wg.Wait()
	close(results)
	<-collected
	return acc.Snapshot()
}

func (d *Dispatcher) runBatch(ctx context.Context, worker int, links []grabber.Link, results chan<- result) {
	logger := d.logger.With(zap.Int("worker", worker))
	ctx = grabber.WithWorker(ctx, worker)
	for i, link := range links {
		if err := ctx.Err(); err != nil {
			logger.Warn("Worker stopping early", zap.Int("remaining", len(links)-i), zap.Error(err))
			for _, rest := range links[i:] {
				results <- result{worker: worker, outcome: grabber.Outcome{Link: rest, Err: err}}
			}
			return
		}
		outcome := d.safeWrite(ctx, logger, link)
		if outcome.Success {
			logger.Info("Saved file",
				zap.String("file", outcome.FileName),
				zap.Int64("bytes", outcome.Bytes),
				zap.Duration("dur", outcome.Duration),
			)
		}
		results <- result{worker: worker, outcome: outcome}
	}
}

// safeWrite keeps a panicking writer from taking down the other workers.
func (d *Dispatcher) safeWrite(ctx context.Context, logger *zap.Logger, link grabber.Link) (outcome grabber.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Writer panicked", zap.String("link", link.String()), zap.Any("panic", r))
			outcome = grabber.Outcome{Link: link, Err: &PanicError{Value: r}}
		}
	}()
	return d.writer.Write(ctx, link)
}

// PanicError wraps a recovered writer panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("writer panic: %v", e.Value)
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
