package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 8, MaxBatchEvents: 2, MaxBatchWait: time.Minute}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageFileSaved))
	hub.Emit(sampleEvent(StageFileSaved))
	require.Eventually(t, func() bool {
		b := sink.Batches()
		return len(b) == 1 && len(b[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 4, MaxBatchEvents: 10, MaxBatchWait: 25 * time.Millisecond}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sampleEvent(StageRunStart))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHubEmitNonBlockingWhenFull(t *testing.T) {
	t.Parallel()

	hub := &Hub{
		cfg:    Config{},
		events: make(chan Event),
		logger: zap.NewNop(),
	}
	start := time.Now()
	hub.Emit(sampleEvent(StageRunStart))
	require.Less(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, int64(1), hub.Dropped())
}

func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{BufferSize: 4, MaxBatchEvents: 100, MaxBatchWait: time.Minute}, sink)

	hub.Emit(sampleEvent(StageFileSkipped))

	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
	require.Len(t, sink.Batches()[0], 1)
	require.True(t, sink.Closed())

	// emits after close are ignored and a second close is harmless
	hub.Emit(sampleEvent(StageFileSkipped))
	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := newStubSink()
	hub := NewHub(Config{MaxBatchEvents: 1}, sink)
	hub.Emit(Event{Stage: StageRunStart})
	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.Batches())
}

func TestHubSinkErrorDoesNotStopDelivery(t *testing.T) {
	t.Parallel()

	failing := &failingSink{}
	sink := newStubSink()
	hub := NewHub(Config{MaxBatchEvents: 1}, failing, nil, sink)
	hub.Emit(sampleEvent(StageFileFailed))
	require.NoError(t, hub.Close(context.Background()))
	require.Len(t, sink.Batches(), 1)
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, sampleEvent(StageRunDone).Validate())

	evt := sampleEvent(StageFileSaved)
	evt.File, evt.URL = "", ""
	require.Error(t, evt.Validate())

	evt = sampleEvent(StageRunStart)
	evt.Stage = "BOGUS"
	require.Error(t, evt.Validate())

	evt = sampleEvent(StageRunStart)
	evt.Dur = -time.Second
	require.Error(t, evt.Validate())

	evt = sampleEvent(StageRunStart)
	evt.TS = time.Time{}
	require.Error(t, evt.Validate())
}

func TestFileEventFromOutcome(t *testing.T) {
	t.Parallel()

	runID := uuid.New()
	ts := time.Unix(1700000000, 0).UTC()

	saved := FileEvent(runID, 3, grabber.Outcome{
		Link: "MyTag789", FileName: "MyTag789.mp4", URL: "https://api/x.mp4",
		Success: true, Bytes: 42, Duration: time.Second,
	}, ts)
	require.Equal(t, StageFileSaved, saved.Stage)
	require.Equal(t, "saved", saved.Result())
	require.Equal(t, 3, saved.Worker)
	require.Equal(t, int64(42), saved.Bytes)
	require.Equal(t, runID, saved.RunUUID())
	require.True(t, saved.IsFile())

	skipped := FileEvent(runID, 0, grabber.Outcome{FileName: "A.mp4", Skipped: true}, ts)
	require.Equal(t, StageFileSkipped, skipped.Stage)

	failed := FileEvent(runID, 0, grabber.Outcome{Link: "https://x/y", Err: errors.New("boom")}, ts)
	require.Equal(t, StageFileFailed, failed.Stage)
	require.Equal(t, "boom", failed.Note)
	require.Equal(t, "https://x/y", failed.URL)
	require.NoError(t, failed.Validate())
}

type stubSink struct {
	mu      sync.Mutex
	batches [][]Event
	closed  bool
}

func newStubSink() *stubSink {
	return &stubSink{batches: [][]Event{}}
}

func (s *stubSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Event(nil), batch...))
	return nil
}

func (s *stubSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *stubSink) Batches() [][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Event, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]Event(nil), b...)
	}
	return out
}

type failingSink struct{}

func (failingSink) Consume(context.Context, []Event) error { return errors.New("sink down") }
func (failingSink) Close(context.Context) error            { return errors.New("sink down") }

func sampleEvent(stage Stage) Event {
	evt := Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now(),
		Stage: stage,
	}
	if evt.IsFile() {
		evt.File = "A.mp4"
		evt.URL = "https://api.example.com/v2/gifs/a/files/A.mp4"
	}
	return evt
}
