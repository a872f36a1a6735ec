package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/JakeFAU/gallery-grabber/internal/store"
)

// Ledger implements store.DownloadRepository in memory.
type Ledger struct {
	mu        sync.RWMutex
	runs      map[uuid.UUID]store.Run
	downloads map[uuid.UUID][]store.Download
}

// NewLedger constructs an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		runs:      make(map[uuid.UUID]store.Run),
		downloads: make(map[uuid.UUID][]store.Download),
	}
}

// StartRun stores run as running unless it is already known.
func (l *Ledger) StartRun(_ context.Context, run store.Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.runs[run.ID]; ok {
		return nil
	}
	run.Status = store.RunRunning
	l.runs[run.ID] = run
	return nil
}

// RecordDownloads appends rows for their runs.
func (l *Ledger) RecordDownloads(_ context.Context, downloads []store.Download) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, d := range downloads {
		l.downloads[d.RunID] = append(l.downloads[d.RunID], d)
	}
	return nil
}

// CompleteRun stores the final state of a known run.
func (l *Ledger) CompleteRun(_ context.Context, run store.Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	existing, ok := l.runs[run.ID]
	if !ok {
		return fmt.Errorf("complete run %s: %w", run.ID, store.ErrNotFound)
	}
	existing.FinishedAt = run.FinishedAt
	existing.Status = run.Status
	existing.Downloaded = run.Downloaded
	existing.Skipped = run.Skipped
	existing.Failed = run.Failed
	existing.TotalBytes = run.TotalBytes
	existing.ErrorMessage = run.ErrorMessage
	l.runs[run.ID] = existing
	return nil
}

// Run returns a stored run.
func (l *Ledger) Run(id uuid.UUID) (store.Run, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	run, ok := l.runs[id]
	if !ok {
		return store.Run{}, store.ErrNotFound
	}
	return run, nil
}

// Downloads returns a copy of the rows recorded for a run.
func (l *Ledger) Downloads(id uuid.UUID) []store.Download {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]store.Download(nil), l.downloads[id]...)
}
