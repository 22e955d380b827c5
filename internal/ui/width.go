package ui

import (
	"io"
	"os"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const maxTranscriptWidth = 100

// TranscriptWidth returns the column count for transcript separators on w,
// capped at maxTranscriptWidth. Zero means w is not a terminal and callers
// use their default.
func TranscriptWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	if width > maxTranscriptWidth {
		return maxTranscriptWidth
	}
	return width
}

// FitLine truncates s to width display columns, marking the cut with an
// ellipsis. Wide runes count as two columns. Width <= 0 leaves s unchanged.
func FitLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
