package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/gallery-grabber/internal/store"
)

func TestNewWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(nil, "downloads")
	require.Error(t, err)
	_, err = NewWithPool(mock, "bad-name; DROP")
	require.Error(t, err)

	s, err := NewWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "downloads", s.table)
	require.Equal(t, "downloads_runs", s.runsTable)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock, "grabs")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS grabs_runs").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS grabs ").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStartRun(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock, "downloads")
	require.NoError(t, err)

	run := store.Run{
		ID:        uuid.New(),
		Mode:      "v",
		Target:    "https://www.example.com/users/someone",
		StartedAt: time.Unix(1700000000, 0).UTC(),
	}
	mock.ExpectExec("INSERT INTO downloads_runs").
		WithArgs(run.ID, run.Mode, run.Target, run.StartedAt, store.RunRunning).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.StartRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDownloadsInsertsRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock, "downloads")
	require.NoError(t, err)

	runID := uuid.New()
	now := time.Unix(1700000000, 0).UTC()
	rows := []store.Download{
		{
			RunID: runID, RecordedAt: now, FileName: "A.mp4", URL: "https://api/a.mp4",
			Result: "saved", Path: "/out/A.mp4", Bytes: 10, Checksum: "abc", Worker: 1, Duration: 2 * time.Second,
		},
		{
			RunID: runID, RecordedAt: now, FileName: "B.mp4", URL: "https://api/b.mp4",
			Result: "failed", Worker: 2, Error: "retries exhausted",
		},
	}
	for _, d := range rows {
		mock.ExpectExec("INSERT INTO downloads").
			WithArgs(d.RunID, d.RecordedAt, d.FileName, d.URL, d.Result, d.Path, d.Bytes, d.Checksum, d.Worker,
				d.Duration.Milliseconds(), d.Error).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, s.RecordDownloads(context.Background(), rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDownloadsPropagatesError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock, "downloads")
	require.NoError(t, err)

	boom := errors.New("connection lost")
	mock.ExpectExec("INSERT INTO downloads").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg()).
		WillReturnError(boom)

	err = s.RecordDownloads(context.Background(), []store.Download{{RunID: uuid.New(), FileName: "A.mp4"}})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRun(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock, "downloads")
	require.NoError(t, err)

	finished := time.Unix(1700000100, 0).UTC()
	run := store.Run{
		ID: uuid.New(), FinishedAt: &finished, Status: store.RunSuccess,
		Downloaded: 20, Skipped: 2, Failed: 1, TotalBytes: 4096,
	}
	mock.ExpectExec("UPDATE downloads_runs").
		WithArgs(run.FinishedAt, run.Status, run.Downloaded, run.Skipped, run.Failed, run.TotalBytes,
			run.ErrorMessage, run.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.CompleteRun(context.Background(), run))

	mock.ExpectExec("UPDATE downloads_runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, s.CompleteRun(context.Background(), run), store.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
