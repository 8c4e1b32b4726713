// Package logging builds the *log.Logger values used across d43. Output goes
// to stderr and, when a file is configured, to a size-rotated log file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a Sink.
type Options struct {
	// File is the log file path. Empty disables file logging.
	File string

	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int

	// MaxBackups is how many rotated files are kept.
	MaxBackups int

	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool

	// Quiet drops stderr output, leaving only the file.
	Quiet bool

	// Stderr replaces os.Stderr, for tests.
	Stderr io.Writer
}

// Sink is a shared log destination. Loggers created from one Sink write to
// the same rotated file.
type Sink struct {
	w    io.Writer
	file *lumberjack.Logger
}

// Open creates a Sink. The log file is created lazily on first write.
func Open(opts Options) *Sink {
	var writers []io.Writer
	if !opts.Quiet {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}

	s := &Sink{}
	if opts.File != "" {
		s.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		writers = append(writers, s.file)
	}

	switch len(writers) {
	case 0:
		s.w = io.Discard
	case 1:
		s.w = writers[0]
	default:
		s.w = io.MultiWriter(writers...)
	}
	return s
}

// Logger returns a logger writing to the sink with the given prefix, e.g.
// "[sync] ".
func (s *Sink) Logger(prefix string) *log.Logger {
	return log.New(s.w, prefix, log.LstdFlags)
}

// Writer returns the sink's underlying writer.
func (s *Sink) Writer() io.Writer {
	return s.w
}

// Rotate starts a new log file. It is a no-op without file logging.
func (s *Sink) Rotate() error {
	if s.file == nil {
		return nil
	}
	return s.file.Rotate()
}

// Close closes the log file, if any.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
