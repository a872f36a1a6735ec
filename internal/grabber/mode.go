package grabber

import (
	"fmt"
	"strings"
)

// Mode selects the discovery strategy and the file naming rule.
type Mode string

// Supported modes.
const (
	// ModeVideo scrapes the gallery page and downloads the videos behind it.
	ModeVideo Mode = "v"
	// ModePreview captures tile previews. Recognised but not run by this build.
	ModePreview Mode = "p"
	// ModeFile resolves page links listed in input.txt.
	ModeFile Mode = "f"
	// ModeSelected rebuilds links from file names already in the output directory.
	ModeSelected Mode = "s"
)

// ParseMode converts a CLI/config value into a Mode. Empty input means ModeVideo.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeVideo, nil
	case ModeVideo, ModePreview, ModeFile, ModeSelected:
		return m, nil
	default:
		return "", fmt.Errorf("%w %q (want one of v, p, f, s)", ErrInvalidMode, raw)
	}
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

// Description returns a human label used in logs.
func (m Mode) Description() string {
	switch m {
	case ModeVideo:
		return "video scrape"
	case ModePreview:
		return "preview capture"
	case ModeFile:
		return "text file"
	case ModeSelected:
		return "selected from directory"
	default:
		return "unknown"
	}
}
