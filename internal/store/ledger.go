package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested run does not exist.
var ErrNotFound = errors.New("run not found")

// RunStatus mirrors the runs status column.
type RunStatus string

// Run statuses.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Run is one grabber invocation.
type Run struct {
	ID         uuid.UUID
	Mode       string
	Target     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Downloaded int
	Skipped    int
	Failed     int
	TotalBytes int64
	// ErrorMessage is set when the run ended with RunError.
	ErrorMessage *string
}

// Download is one file outcome.
type Download struct {
	RunID      uuid.UUID
	RecordedAt time.Time
	FileName   string
	URL        string
	// Result is saved, skipped or failed.
	Result   string
	Path     string
	Bytes    int64
	Checksum string
	Worker   int
	Duration time.Duration
	Error    string
}

// DownloadRepository persists the ledger.
type DownloadRepository interface {
	// StartRun inserts the run in RunRunning state.
	StartRun(ctx context.Context, run Run) error
	// RecordDownloads appends file outcomes.
	RecordDownloads(ctx context.Context, downloads []Download) error
	// CompleteRun stores the final status and totals of run.
	CompleteRun(ctx context.Context, run Run) error
}
