// Package pipeline runs one grab: discover links, partition them, download the
// batches concurrently and report a summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/dispatcher"
	"github.com/JakeFAU/gallery-grabber/internal/grabber"
	"github.com/JakeFAU/gallery-grabber/internal/linkset"
	"github.com/JakeFAU/gallery-grabber/internal/progress"
	"github.com/JakeFAU/gallery-grabber/internal/storage/local"
	"github.com/JakeFAU/gallery-grabber/internal/writer"
)

const tracerName = "github.com/JakeFAU/gallery-grabber/internal/pipeline"

// Config is the resolved run configuration.
type Config struct {
	Mode   grabber.Mode
	Target string
	// OutputDir is created before discovery and receives every file.
	OutputDir string
	Threads   int
}

// StrategyFunc builds the discovery strategy for mode reading from dir.
type StrategyFunc func(mode grabber.Mode, dir string) (grabber.Strategy, error)

// WriterFunc builds the per-link writer once the output directory exists.
type WriterFunc func(namer grabber.Namer, files writer.Files) grabber.Writer

// RunIDFunc returns a fresh run identifier.
type RunIDFunc func() (uuid.UUID, error)

// Summary describes a finished run.
type Summary struct {
	RunID      uuid.UUID
	Discovered int
	Workers    int
	Stats      grabber.Statistics
	Elapsed    time.Duration
}

// Pipeline wires discovery to the dispatcher.
type Pipeline struct {
	cfg         Config
	newStrategy StrategyFunc
	newWriter   WriterFunc
	newRunID    RunIDFunc
	emitter     progress.Emitter
	clock       grabber.Clock
	logger      *zap.Logger
	onDispatch  func()
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithEmitter publishes run and file events.
func WithEmitter(e progress.Emitter) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.emitter = e
		}
	}
}

// WithRunID overrides run id generation.
func WithRunID(fn RunIDFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.newRunID = fn
		}
	}
}

// WithClock overrides the time source.
func WithClock(c grabber.Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDispatchHook is called once, right before downloads start.
func WithDispatchHook(fn func()) Option {
	return func(p *Pipeline) {
		p.onDispatch = fn
	}
}

// New validates cfg and returns a Pipeline.
func New(cfg Config, newStrategy StrategyFunc, newWriter WriterFunc, opts ...Option) (*Pipeline, error) {
	if newStrategy == nil || newWriter == nil {
		return nil, errors.New("strategy and writer factories are required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if cfg.Threads <= 0 {
		cfg.Threads = grabber.DefaultThreads
	}
	p := &Pipeline{
		cfg:         cfg,
		newStrategy: newStrategy,
		newWriter:   newWriter,
		newRunID:    uuid.NewV7,
		emitter:     progress.NopEmitter{},
		clock:       utcClock{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes one grab. Setup and discovery failures are returned; per-file
// failures only show up in Summary.Stats.
func (p *Pipeline) Run(ctx context.Context) (summary Summary, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("grabber.mode", p.cfg.Mode.String()),
		attribute.String("grabber.target", p.cfg.Target),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := p.clock.Now()
	runID, err := p.newRunID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	summary.RunID = runID
	span.SetAttributes(attribute.String("grabber.run_id", runID.String()))
	logger := p.logger.With(zap.String("run_id", runID.String()), zap.String("mode", p.cfg.Mode.String()))

	strategy, err := p.newStrategy(p.cfg.Mode, p.cfg.OutputDir)
	if err != nil {
		return summary, fmt.Errorf("select source: %w", err)
	}

	logger.Info("Setting up directory", zap.String("dir", p.cfg.OutputDir))
	files, err := local.New(local.Config{BaseDir: p.cfg.OutputDir})
	if err != nil {
		return summary, fmt.Errorf("output directory: %w", err)
	}

	p.emitter.Emit(p.runEvent(runID, progress.StageRunStart))

	links := linkset.New()
	if err := p.discover(ctx, logger, strategy, links); err != nil {
		evt := p.runEvent(runID, progress.StageRunError)
		evt.Note = err.Error()
		p.emitter.Emit(evt)
		return summary, fmt.Errorf("discover links: %w", err)
	}
	summary.Discovered = links.Len()

	batches := linkset.Partition(links, p.cfg.Threads)
	summary.Workers = len(batches)
	if p.onDispatch != nil {
		p.onDispatch()
	}

	d := dispatcher.New(
		p.newWriter(strategy, files),
		dispatcher.WithEmitter(p.emitter, runID),
		dispatcher.WithClock(p.clock),
		dispatcher.WithLogger(logger.Named("dispatcher")),
	)
	dispatchCtx, dispatchSpan := otel.Tracer(tracerName).Start(ctx, "pipeline.dispatch",
		trace.WithAttributes(attribute.Int("grabber.workers", summary.Workers)))
	summary.Stats = d.Run(dispatchCtx, batches)
	dispatchSpan.SetAttributes(
		attribute.Int("grabber.saved", summary.Stats.Downloaded),
		attribute.Int("grabber.failed", summary.Stats.Failed),
	)
	dispatchSpan.End()
	summary.Elapsed = p.clock.Now().Sub(start)

	done := p.runEvent(runID, progress.StageRunDone)
	done.Saved = summary.Stats.Downloaded
	done.Skipped = summary.Stats.Skipped
	done.Failed = summary.Stats.Failed
	done.Bytes = summary.Stats.TotalBytes
	done.Dur = summary.Elapsed
	p.emitter.Emit(done)

	logger.Info("Done",
		zap.Duration("elapsed", summary.Elapsed),
		zap.Int("files", summary.Stats.Downloaded),
		zap.String("size", fmt.Sprintf("%.2f MB", summary.Stats.TotalMB())),
		zap.Int("skipped", summary.Stats.Skipped),
		zap.Int("failed", summary.Stats.Failed),
	)
	return summary, nil
}

func (p *Pipeline) discover(ctx context.Context, logger *zap.Logger, strategy grabber.Strategy, links *linkset.Set) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.discover")
	defer span.End()

	logger.Info("Discovering links", zap.String("source", p.cfg.Mode.Description()), zap.String("target", p.cfg.Target))
	if err := strategy.Discover(ctx, links); err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("grabber.links", links.Len()))
	logger.Info("Links discovered", zap.Int("links", links.Len()))
	return nil
}

func (p *Pipeline) runEvent(runID uuid.UUID, stage progress.Stage) progress.Event {
	return progress.Event{
		RunID:  progress.UUIDToBytes(runID),
		TS:     p.clock.Now(),
		Stage:  stage,
		Mode:   p.cfg.Mode.String(),
		Target: p.cfg.Target,
	}
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
