// Package output provides console printing gated by a verbosity level.
package output

import (
	"fmt"
	"io"
	"os"
)

// Level represents different levels of console output
type Level int

const (
	Quiet   Level = iota // Only errors and essential output
	Normal               // Standard output
	Verbose              // Detailed output
	Debug                // All debug information
)

func (l Level) String() string {
	switch l {
	case Quiet:
		return "quiet"
	case Normal:
		return "normal"
	case Verbose:
		return "verbose"
	case Debug:
		return "debug"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Logger prints to Out, and errors to Err, when its level allows it.
type Logger struct {
	Level Level
	Out   io.Writer
	Err   io.Writer
}

// New returns a Logger on stdout and stderr.
func New(level Level) *Logger {
	return &Logger{Level: level, Out: os.Stdout, Err: os.Stderr}
}

// LevelFromFlags maps the -q, -v and -debug flags to a level. Quiet wins.
func LevelFromFlags(quiet, verbose, debug bool) Level {
	switch {
	case quiet:
		return Quiet
	case debug:
		return Debug
	case verbose:
		return Verbose
	}
	return Normal
}

// Enabled reports whether messages at level are printed.
func (l *Logger) Enabled(level Level) bool {
	return level <= l.Level
}

// Printf prints formatted output only if the current level allows it
func (l *Logger) Printf(level Level, format string, args ...any) {
	if l.Enabled(level) {
		fmt.Fprintf(l.Out, format, args...)
	}
}

// Println prints a line only if the current level allows it
func (l *Logger) Println(level Level, args ...any) {
	if l.Enabled(level) {
		fmt.Fprintln(l.Out, args...)
	}
}

// Infof prints normal information (respects quiet mode)
func (l *Logger) Infof(format string, args ...any) {
	l.Printf(Normal, format, args...)
}

func (l *Logger) Verbosef(format string, args ...any) {
	l.Printf(Verbose, format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.Printf(Debug, format, args...)
}

// Errorf always prints to Err regardless of level
func (l *Logger) Errorf(format string, args ...any) {
	fmt.Fprintf(l.Err, format, args...)
}

// Progress returns the writer for progress reports, or nil in quiet mode.
func (l *Logger) Progress() io.Writer {
	if l.Level == Quiet {
		return nil
	}
	return l.Out
}
