// Package logging builds the zerolog logger shared by every gca component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

type Options struct {
	Verbose bool
	Quiet   bool
	// File, when set, receives a JSON copy of every entry with size-based rotation.
	File string
	// Console overrides stderr. A terminal *os.File gets the human-readable
	// console writer; any other writer receives JSON.
	Console io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns the logger and a closer for the log file, if any. A log file
// that cannot be prepared is reported as an error alongside a working
// console-only logger.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	console := consoleOutput(opts.Console)

	var closer io.Closer = nopCloser{}
	writer := io.Writer(NewFilteringWriter(console))

	var fileErr error
	if opts.File != "" {
		fileWriter, err := newFileWriter(opts.File)
		if err != nil {
			fileErr = err
		} else {
			closer = fileWriter
			writer = zerolog.MultiLevelWriter(writer, NewFilteringWriter(fileWriter))
		}
	}

	logger := zerolog.New(writer).
		Level(SelectLevel(opts.Verbose, opts.Quiet)).
		Hook(SensitiveDataHook{}).
		With().Timestamp().Logger()

	return logger, closer, fileErr
}

func SelectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func consoleOutput(w io.Writer) io.Writer {
	switch out := w.(type) {
	case nil:
		return selectOutput(os.Stderr)
	case *os.File:
		return selectOutput(out)
	default:
		return w
	}
}

var isTerminal = func(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// selectOutput uses the human-readable console writer on a terminal unless
// NO_COLOR is set, and JSON otherwise.
func selectOutput(f *os.File) io.Writer {
	if isTerminal(f) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}
	return f
}

func newFileWriter(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
	}, nil
}
