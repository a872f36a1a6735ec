package grabber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"image with marker and query", "https://thumbs.example.com/AbcXyz123-mobile.jpg?w=200", "AbcXyz123"},
		{"fragment and large marker", "https://thumbs.example.com/SomeId456-large#frag", "SomeId456"},
		{"silent marker", "https://thumbs.example.com/Quiet-silent.mp4", "Quiet"},
		{"plain segment", "https://host/path/Plain", "Plain"},
		{"query before fragment", "https://host/Id.webp?x=1#y", "Id"},
		{"no separator", "JustAnId", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ExtractName(tc.in))
		})
	}
}

func TestPlanDownloadImage(t *testing.T) {
	t.Parallel()

	link := Link("https://thumbs.example.com/AbcXyz123-mobile.jpg?w=200")
	target := PlanDownload(link, ExtractName(link.String()), DefaultAPIHost)

	require.Equal(t, "AbcXyz123", target.Name)
	require.Equal(t, "AbcXyz123.jpg", target.FileName)
	require.Equal(t, link.String(), target.URL)
}

func TestPlanDownloadVideo(t *testing.T) {
	t.Parallel()

	link := Link("https://thumbs.example.com/SomeId456-large#frag")
	target := PlanDownload(link, ExtractName(link.String()), DefaultAPIHost)

	require.Equal(t, "SomeId456.mp4", target.FileName)
	require.Equal(t, "https://api.redgifs.com/v2/gifs/someid456/files/SomeId456.mp4", target.URL)
}

func TestPlanDownloadSelectedCue(t *testing.T) {
	t.Parallel()

	target := PlanDownload(Link("MyTag789"), "MyTag789", "")

	require.Equal(t, "MyTag789.mp4", target.FileName)
	require.Equal(t, "https://api.redgifs.com/v2/gifs/mytag789/files/MyTag789.mp4", target.URL)
}

func TestTargetIdentifier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "someuser", TargetIdentifier("https://www.example.com/users/someuser?tab=gifs"))
	assert.Equal(t, "", TargetIdentifier(""))
	assert.Equal(t, "", TargetIdentifier("nouser"))
	assert.Equal(t, "", TargetIdentifier("https://www.example.com/users/.."))
	assert.Equal(t, "", TargetIdentifier("https://www.example.com/users/.?tab=gifs"))
}

func TestCueFromFileName(t *testing.T) {
	t.Parallel()

	cue, ok := CueFromFileName("MyTag789-mobile.jpg.png")
	require.True(t, ok)
	require.Equal(t, "MyTag789", cue)

	_, ok = CueFromFileName("MyTag789.mp4")
	require.False(t, ok)

	_, ok = CueFromFileName("-leading.png")
	require.False(t, ok)
}
