package grabber

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkerContext(t *testing.T) {
	t.Parallel()

	_, ok := WorkerFrom(context.Background())
	require.False(t, ok)

	worker, ok := WorkerFrom(WithWorker(context.Background(), 7))
	require.True(t, ok)
	require.Equal(t, 7, worker)
}
