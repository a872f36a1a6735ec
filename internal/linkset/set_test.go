package linkset

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
)

func TestSetAddDeduplicates(t *testing.T) {
	t.Parallel()

	set := New()
	inputs := []string{"a", "b", "a", "c", "b", "a"}
	added := 0
	for _, in := range inputs {
		if set.Add(grabber.Link(in)) {
			added++
		}
	}
	require.Equal(t, 3, added)
	require.Equal(t, 3, set.Len())
}

func TestSetConcurrentAdd(t *testing.T) {
	t.Parallel()

	set := New()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				set.Add(grabber.Link(fmt.Sprintf("link-%d", i)))
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 100, set.Len())
}

func TestDrainEmptiesSet(t *testing.T) {
	t.Parallel()

	set := New()
	set.Add("x")
	set.Add("y")

	links := set.Drain()
	require.ElementsMatch(t, []grabber.Link{"x", "y"}, links)
	require.Zero(t, set.Len())
	require.Empty(t, set.Drain())
}

func TestDrainIntoBatchesReturnsExactlyN(t *testing.T) {
	t.Parallel()

	set := New()
	for i := 0; i < 3; i++ {
		set.Add(grabber.Link(fmt.Sprintf("l%d", i)))
	}

	batches := set.DrainIntoBatches(5)
	require.Len(t, batches, 5)
	total := 0
	for _, b := range batches {
		require.NotNil(t, b)
		require.LessOrEqual(t, len(b), 1)
		total += len(b)
	}
	require.Equal(t, 3, total)
	require.Zero(t, set.Len())
}
