package ui

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// Spinner wraps briandowns/spinner and stays silent unless it writes to a terminal.
type Spinner struct {
	s       *spinner.Spinner
	enabled bool
}

// NewSpinner creates a spinner on w. Anything other than a terminal file
// yields a disabled spinner whose methods do nothing.
func NewSpinner(w io.Writer, message string) *Spinner {
	f, ok := w.(*os.File)
	if !ok || !IsTerminal(f) {
		return &Spinner{}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = " " + message
	return &Spinner{s: s, enabled: true}
}

func (sp *Spinner) Enabled() bool {
	return sp.enabled
}

func (sp *Spinner) Start() {
	if sp.enabled {
		sp.s.Start()
	}
}

// Stop clears the spinner line; it may be started again afterwards.
func (sp *Spinner) Stop() {
	if sp.enabled {
		sp.s.Stop()
	}
}

func (sp *Spinner) UpdateMessage(message string) {
	if sp.enabled {
		sp.s.Suffix = " " + message
	}
}

// IsTerminal reports whether f is an interactive terminal, Cygwin included.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
