package grabber

import (
	"fmt"
	"strings"
)

var suffixMarkers = []string{"-mobile", "-silent", "-large"}

// ExtractName derives the content identifier from a media URL: the last path
// segment without query string or fragment, with size/variant markers removed,
// cut at the first dot. It returns "" when the link has no path separator.
func ExtractName(raw string) string {
	parts := strings.Split(raw, "/")
	if len(parts) < 2 {
		return ""
	}
	name := parts[len(parts)-1]
	name, _, _ = strings.Cut(name, "?")
	name, _, _ = strings.Cut(name, "#")
	for _, marker := range suffixMarkers {
		name = strings.ReplaceAll(name, marker, "")
	}
	name, _, _ = strings.Cut(name, ".")
	return name
}

// MediaURL builds the direct video URL for an identifier on the API host.
func MediaURL(apiHost, name string) string {
	if apiHost == "" {
		apiHost = DefaultAPIHost
	}
	return fmt.Sprintf("https://%s/v2/gifs/%s/files/%s.mp4", apiHost, strings.ToLower(name), name)
}

// IsImageLink reports whether the raw link points at a jpg image.
func IsImageLink(link Link) bool {
	return strings.Contains(string(link), ".jpg")
}

// PlanDownload combines a link with its derived name into a download Target.
// Image links are fetched as-is; everything else is fetched from the API host.
func PlanDownload(link Link, name, apiHost string) Target {
	if IsImageLink(link) {
		return Target{Name: name, FileName: name + ".jpg", URL: string(link)}
	}
	return Target{Name: name, FileName: name + ".mp4", URL: MediaURL(apiHost, name)}
}

// TargetIdentifier returns the sub-directory name for a target page: its last
// path segment with the query string removed. It returns "" when target is
// empty, has no path separator or ends in a "." or ".." segment.
func TargetIdentifier(target string) string {
	if target == "" {
		return ""
	}
	parts := strings.Split(target, "/")
	if len(parts) < 2 {
		return ""
	}
	id, _, _ := strings.Cut(parts[len(parts)-1], "?")
	if id == "." || id == ".." {
		return ""
	}
	return id
}

// CueFromFileName extracts the identifier encoded in an output file name, the
// text before the first dash. ok is false when the name carries no dash.
func CueFromFileName(fileName string) (string, bool) {
	cue, _, found := strings.Cut(fileName, "-")
	if !found || cue == "" {
		return "", false
	}
	return cue, true
}
