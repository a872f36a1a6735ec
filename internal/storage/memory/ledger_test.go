package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/gallery-grabber/internal/store"
)

func TestLedgerLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedger()
	id := uuid.New()

	require.NoError(t, ledger.StartRun(ctx, store.Run{ID: id, Mode: "s", StartedAt: time.Now()}))
	run, err := ledger.Run(id)
	require.NoError(t, err)
	require.Equal(t, store.RunRunning, run.Status)

	require.NoError(t, ledger.RecordDownloads(ctx, []store.Download{
		{RunID: id, FileName: "A.mp4", Result: "saved"},
		{RunID: id, FileName: "B.mp4", Result: "skipped"},
	}))
	require.Len(t, ledger.Downloads(id), 2)

	finished := time.Now()
	require.NoError(t, ledger.CompleteRun(ctx, store.Run{ID: id, FinishedAt: &finished, Status: store.RunSuccess, Downloaded: 1, Skipped: 1}))
	run, err = ledger.Run(id)
	require.NoError(t, err)
	require.Equal(t, store.RunSuccess, run.Status)
	require.Equal(t, "s", run.Mode)
	require.Equal(t, 1, run.Downloaded)
}

func TestLedgerUnknownRun(t *testing.T) {
	t.Parallel()

	ledger := NewLedger()
	_, err := ledger.Run(uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, ledger.CompleteRun(context.Background(), store.Run{ID: uuid.New()}), store.ErrNotFound)
}
