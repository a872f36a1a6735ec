package headless

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
	"github.com/JakeFAU/gallery-grabber/internal/linkset"
)

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	require.Equal(t, grabber.RenderTimeout, cfg.RenderTimeout)
	require.Equal(t, defaultScrollSettle, cfg.ScrollSettle)

	cfg = Config{RenderTimeout: time.Second, ScrollSettle: time.Millisecond}.withDefaults()
	require.Equal(t, time.Second, cfg.RenderTimeout)
	require.Equal(t, time.Millisecond, cfg.ScrollSettle)
}

func TestAllocatorOptionsHeadlessToggle(t *testing.T) {
	t.Parallel()

	headless := allocatorOptions(Config{Headless: true})
	windowed := allocatorOptions(Config{Headless: false})
	require.Len(t, windowed, len(headless))
	require.NotEmpty(t, headless)
}

func TestCollectScriptTargetsTiles(t *testing.T) {
	t.Parallel()

	require.Contains(t, collectScript, `".tile.isVideo"`)
	require.Contains(t, collectScript, `".thumbnail"`)
	require.Contains(t, collectScript, "scrollIntoView")
	require.Contains(t, collectScript, "thumb.src")
	require.NotContains(t, collectScript, `getAttribute("src")`)
}

func TestAddAllDeduplicates(t *testing.T) {
	t.Parallel()

	set := linkset.New()
	added := addAll(set, []string{
		"https://thumbs.example.com/A-mobile.jpg",
		" https://thumbs.example.com/A-mobile.jpg ",
		"",
		"https://thumbs.example.com/B-mobile.jpg",
	})
	require.Equal(t, 2, added)
	require.Equal(t, 2, set.Len())
}

func TestScrapeRejectsEmptyTarget(t *testing.T) {
	t.Parallel()

	s := NewChromedp(Config{}, nil)
	t.Cleanup(s.Close)
	require.Error(t, s.Scrape(context.Background(), "  ", linkset.New()))
}

func TestSleepWithContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepWithContext(ctx, time.Hour), context.Canceled)
	require.NoError(t, sleepWithContext(context.Background(), time.Millisecond))
}
