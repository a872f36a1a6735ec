package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
	"github.com/JakeFAU/gallery-grabber/internal/progress"
	"github.com/JakeFAU/gallery-grabber/internal/source"
	"github.com/JakeFAU/gallery-grabber/internal/writer"
)

const testHost = "api.example.test"

type mapFetcher struct {
	mu       sync.Mutex
	payloads map[string][]byte
	calls    []string
}

func (f *mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	body, ok := f.payloads[url]
	if !ok {
		return nil, errors.New("unreachable")
	}
	return body, nil
}

type collectingEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (e *collectingEmitter) Emit(evt progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
}

func (e *collectingEmitter) stages() []progress.Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]progress.Stage, 0, len(e.events))
	for _, evt := range e.events {
		out = append(out, evt.Stage)
	}
	return out
}

func (e *collectingEmitter) last() progress.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events[len(e.events)-1]
}

type failingStrategy struct{ err error }

func (s failingStrategy) Mode() grabber.Mode { return grabber.ModeVideo }
func (s failingStrategy) DeriveName(link grabber.Link) string { return string(link) }
func (s failingStrategy) Discover(context.Context, grabber.LinkSink) error { return s.err }

func sourceStrategy(mode grabber.Mode, dir string) (grabber.Strategy, error) {
	return source.New(mode, source.Deps{Dir: dir})
}

func writerFactory(fetcher grabber.Fetcher) WriterFunc {
	return func(namer grabber.Namer, files writer.Files) grabber.Writer {
		return writer.New(writer.Config{APIHost: testHost}, namer, fetcher, files)
	}
}

func touch(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestRunSelectedModeEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, dir, "abc-part1.txt", "")
	touch(t, dir, "abc-part2.txt", "")
	touch(t, dir, "Xyz-cue.txt", "")
	touch(t, dir, "dup-cue.txt", "")
	touch(t, dir, "dup.mp4", "already here")

	fetcher := &mapFetcher{payloads: map[string][]byte{
		grabber.MediaURL(testHost, "abc"): []byte("abc-bytes"),
		grabber.MediaURL(testHost, "Xyz"): []byte("xyz-bytes!"),
	}}
	emitter := &collectingEmitter{}
	runID := uuid.MustParse("0190f7a4-1c2b-7d3e-8f40-123456789abc")
	dispatched := false

	core, logs := observer.New(zap.InfoLevel)
	p, err := New(
		Config{Mode: grabber.ModeSelected, OutputDir: dir, Threads: 10},
		sourceStrategy,
		writerFactory(fetcher),
		WithEmitter(emitter),
		WithRunID(func() (uuid.UUID, error) { return runID, nil }),
		WithLogger(zap.New(core)),
		WithDispatchHook(func() { dispatched = true }),
	)
	require.NoError(t, err)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	require.True(t, dispatched)
	require.Equal(t, runID, summary.RunID)
	require.Equal(t, 3, summary.Discovered)
	require.Equal(t, 3, summary.Workers)
	require.Equal(t, 2, summary.Stats.Downloaded)
	require.Equal(t, 1, summary.Stats.Skipped)
	require.Zero(t, summary.Stats.Failed)
	require.Equal(t, int64(len("abc-bytes")+len("xyz-bytes!")), summary.Stats.TotalBytes)
	require.Len(t, fetcher.calls, 2, "duplicates are skipped before any fetch")

	data, err := os.ReadFile(filepath.Join(dir, "Xyz.mp4"))
	require.NoError(t, err)
	require.Equal(t, "xyz-bytes!", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "dup.mp4"))
	require.NoError(t, err)
	require.Equal(t, "already here", string(data))

	stages := emitter.stages()
	require.Equal(t, progress.StageRunStart, stages[0])
	require.Equal(t, progress.StageRunDone, stages[len(stages)-1])
	require.Len(t, stages, 5)
	done := emitter.last()
	require.Equal(t, 2, done.Saved)
	require.Equal(t, 1, done.Skipped)
	require.Equal(t, summary.Stats.TotalBytes, done.Bytes)
	require.Equal(t, runID, done.RunUUID())

	require.Equal(t, 1, logs.FilterMessage("Done").Len())
}

func TestRunCreatesOutputDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out", "someone")
	p, err := New(Config{Mode: grabber.ModeSelected, OutputDir: dir}, sourceStrategy, writerFactory(&mapFetcher{}))
	require.NoError(t, err)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.Discovered)
	require.Zero(t, summary.Workers)
	require.DirExists(t, dir)
}

func TestRunPreviewModeUnsupported(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "never")
	p, err := New(Config{Mode: grabber.ModePreview, OutputDir: dir}, sourceStrategy, writerFactory(&mapFetcher{}))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.ErrorIs(t, err, grabber.ErrUnsupportedMode)
	require.NoDirExists(t, dir)
}

func TestRunDiscoveryFailureEmitsRunError(t *testing.T) {
	t.Parallel()

	boom := errors.New("gallery unreachable")
	emitter := &collectingEmitter{}
	p, err := New(
		Config{Mode: grabber.ModeVideo, OutputDir: t.TempDir()},
		func(grabber.Mode, string) (grabber.Strategy, error) { return failingStrategy{err: boom}, nil },
		writerFactory(&mapFetcher{}),
		WithEmitter(emitter),
	)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, []progress.Stage{progress.StageRunStart, progress.StageRunError}, emitter.stages())
	require.Equal(t, "gallery unreachable", emitter.last().Note)
}

func TestRunOutputDirectoryFailure(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	touch(t, parent, "blocker", "")
	p, err := New(
		Config{Mode: grabber.ModeSelected, OutputDir: filepath.Join(parent, "blocker", "sub")},
		sourceStrategy,
		writerFactory(&mapFetcher{}),
	)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)
}

func TestRunIDFailure(t *testing.T) {
	t.Parallel()

	p, err := New(
		Config{Mode: grabber.ModeSelected, OutputDir: t.TempDir()},
		sourceStrategy,
		writerFactory(&mapFetcher{}),
		WithRunID(func() (uuid.UUID, error) { return uuid.Nil, errors.New("entropy") }),
	)
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.ErrorContains(t, err, "generate run id")
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(Config{OutputDir: "/tmp"}, nil, writerFactory(&mapFetcher{}))
	require.Error(t, err)
	_, err = New(Config{}, sourceStrategy, writerFactory(&mapFetcher{}))
	require.Error(t, err)

	p, err := New(Config{OutputDir: "/tmp"}, sourceStrategy, writerFactory(&mapFetcher{}))
	require.NoError(t, err)
	require.Equal(t, grabber.DefaultThreads, p.cfg.Threads)
}

func TestUTCClock(t *testing.T) {
	t.Parallel()

	now := utcClock{}.Now()
	require.Equal(t, time.UTC, now.Location())
}

func TestRunRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	p, err := New(Config{Mode: grabber.ModeSelected, OutputDir: t.TempDir()}, sourceStrategy, writerFactory(&mapFetcher{}))
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	names := map[string]bool{}
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
	}
	require.True(t, names["pipeline.Run"])
	require.True(t, names["pipeline.discover"])
	require.True(t, names["pipeline.dispatch"])
}
