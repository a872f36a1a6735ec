package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/progress"
	"github.com/JakeFAU/gallery-grabber/internal/store"
)

// LedgerSink persists runs and file outcomes via a store.DownloadRepository.
type LedgerSink struct {
	repo   store.DownloadRepository
	logger *zap.Logger
}

// NewLedgerSink constructs a LedgerSink for repo.
func NewLedgerSink(repo store.DownloadRepository, logger *zap.Logger) *LedgerSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerSink{repo: repo, logger: logger}
}

// Consume writes run transitions immediately and file rows in one call per
// batch. Files are flushed before a run completion in the same batch.
func (s *LedgerSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	var pending []store.Download
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.repo.RecordDownloads(ctx, pending); err != nil {
			return fmt.Errorf("record downloads: %w", err)
		}
		pending = pending[:0]
		return nil
	}
	for _, evt := range batch {
		if evt.IsFile() {
			pending = append(pending, downloadFromEvent(evt))
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if err := s.handleRunEvent(ctx, evt); err != nil {
			return err
		}
	}
	return flush()
}

func (s *LedgerSink) handleRunEvent(ctx context.Context, evt progress.Event) error {
	run := store.Run{
		ID:     evt.RunUUID(),
		Mode:   evt.Mode,
		Target: evt.Target,
	}
	switch evt.Stage {
	case progress.StageRunStart:
		run.StartedAt = evt.TS
		if err := s.repo.StartRun(ctx, run); err != nil {
			return fmt.Errorf("start run: %w", err)
		}
		return nil
	case progress.StageRunDone:
		run.Status = store.RunSuccess
	case progress.StageRunError:
		run.Status = store.RunError
		if evt.Note != "" {
			note := evt.Note
			run.ErrorMessage = &note
		}
	default:
		return nil
	}
	finished := evt.TS
	run.FinishedAt = &finished
	run.Downloaded = evt.Saved
	run.Skipped = evt.Skipped
	run.Failed = evt.Failed
	run.TotalBytes = evt.Bytes
	if err := s.repo.CompleteRun(ctx, run); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

func downloadFromEvent(evt progress.Event) store.Download {
	return store.Download{
		RunID:      evt.RunUUID(),
		RecordedAt: evt.TS,
		FileName:   evt.File,
		URL:        evt.URL,
		Result:     evt.Result(),
		Path:       evt.Path,
		Bytes:      evt.Bytes,
		Checksum:   evt.Checksum,
		Worker:     evt.Worker,
		Duration:   evt.Dur,
		Error:      evt.Note,
	}
}

// Close implements progress.Sink.
func (s *LedgerSink) Close(context.Context) error {
	return nil
}
