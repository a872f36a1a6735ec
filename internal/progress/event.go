package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

// Stage denotes the milestone an Event reports.
type Stage string

// Supported stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageRunDone     Stage = "RUN_DONE"
	StageRunError    Stage = "RUN_ERROR"
	StageFileSaved   Stage = "FILE_SAVED"
	StageFileSkipped Stage = "FILE_SKIPPED"
	StageFileFailed  Stage = "FILE_FAILED"
)

// Event is one progress record.
type Event struct {
	// RunID identifies the run in 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC time the event was emitted.
	TS    time.Time
	Stage Stage
	// Mode and Target describe the run; set on run events.
	Mode   string
	Target string
	// Worker is the batch index that handled the file.
	Worker   int
	File     string
	URL      string
	Path     string
	Checksum string
	Bytes    int64
	// Saved, Skipped and Failed carry run totals on RUN_DONE.
	Saved   int
	Skipped int
	Failed  int
	// Dur is the file download time, or the run wall time on RUN_DONE.
	Dur time.Duration
	// Note holds error text.
	Note string
}

// Validate performs coarse validation.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageFileSaved, StageFileSkipped, StageFileFailed:
		if e.File == "" && e.URL == "" {
			return fmt.Errorf("%s requires a file or url", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// IsFile reports whether the event describes a single file.
func (e Event) IsFile() bool {
	switch e.Stage {
	case StageFileSaved, StageFileSkipped, StageFileFailed:
		return true
	}
	return false
}

// Result is the short label for a file stage: saved, skipped or failed.
func (e Event) Result() string {
	switch e.Stage {
	case StageFileSaved:
		return "saved"
	case StageFileSkipped:
		return "skipped"
	case StageFileFailed:
		return "failed"
	}
	return ""
}

// RunUUID converts RunID for repositories.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// FileEvent builds the event for one download outcome.
func FileEvent(runID uuid.UUID, worker int, o grabber.Outcome, ts time.Time) Event {
	evt := Event{
		RunID:    UUIDToBytes(runID),
		TS:       ts,
		Worker:   worker,
		File:     o.FileName,
		URL:      o.URL,
		Path:     o.Path,
		Checksum: o.Checksum,
		Bytes:    o.Bytes,
		Dur:      o.Duration,
	}
	if evt.URL == "" {
		evt.URL = o.Link.String()
	}
	switch {
	case o.Success:
		evt.Stage = StageFileSaved
	case o.Skipped:
		evt.Stage = StageFileSkipped
	default:
		evt.Stage = StageFileFailed
		if o.Err != nil {
			evt.Note = o.Err.Error()
		}
	}
	return evt
}
