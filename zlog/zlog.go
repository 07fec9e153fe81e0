// Package zlog sets up process logging for omniversion binaries on top of
// zerolog, with optional file output rotated by lumberjack.
//
// Results of a command go to stdout, so log output goes to stderr: human
// readable when stderr is a terminal and JSON otherwise. Init also installs
// the logger in the logging package, which makes the library packages log
// through the same writers.
//
// Example:
//
//	func main() {
//		l := zlog.New().
//			WithConsole(os.Stderr).
//			WithLogFile(filepath.Join(flag.Path, "omniversion.log"))
//		defer l.Stop()
//		l.Init(zerolog.InfoLevel)
//
//		log.Info().Msg("ready")
//	}
package zlog

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valentin-kaiser/omniversion/logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ModeDetector reports whether f is attached to a terminal
type ModeDetector func(f *os.File) bool

var detector ModeDetector

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// Interactive reports whether f is a terminal
func Interactive(f *os.File) bool {
	if detector != nil {
		return detector(f)
	}

	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// SetModeDetector replaces the terminal detection, nil restores the default
func SetModeDetector(d ModeDetector) {
	detector = d
}

// multiWriter is like io.MultiWriter but keeps writing to the remaining
// writers when one fails
type multiWriter struct {
	writers []io.Writer
}

func (mw *multiWriter) Write(p []byte) (int, error) {
	var lastErr error
	for _, w := range mw.writers {
		if _, err := w.Write(p); err != nil {
			lastErr = err
		}
	}
	return len(p), lastErr
}

// Logger collects the outputs of the process logger
type Logger struct {
	level   zerolog.Level
	file    *lumberjack.Logger
	outputs []io.Writer
}

// New returns a logger without outputs
func New() *Logger {
	return &Logger{level: zerolog.InfoLevel}
}

// WithConsole adds f as output, formatted for humans if f is a terminal
func (l *Logger) WithConsole(f *os.File) *Logger {
	if Interactive(f) {
		l.outputs = append(l.outputs, zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339})
		return l
	}
	l.outputs = append(l.outputs, f)
	return l
}

// WithLogFile adds a rotated log file at path. A missing .log suffix is appended.
func (l *Logger) WithLogFile(path string) *Logger {
	if !strings.HasSuffix(path, ".log") {
		path += ".log"
	}
	l.file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxAge:     28, // days
		MaxBackups: 10,
		Compress:   true,
	}
	l.outputs = append(l.outputs, l.file)
	return l
}

// With adds custom writers
func (l *Logger) With(writers ...io.Writer) *Logger {
	l.outputs = append(l.outputs, writers...)
	return l
}

// Init installs the outputs as the global zerolog logger and routes the
// package loggers of the logging package through it
func (l *Logger) Init(level zerolog.Level) {
	l.SetLevel(level)
	out := io.Writer(io.Discard)
	if len(l.outputs) > 0 {
		out = &multiWriter{writers: l.outputs}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	logging.Install(log.Logger)
}

// SetLevel sets the global zerolog level
func (l *Logger) SetLevel(level zerolog.Level) *Logger {
	l.level = level
	zerolog.SetGlobalLevel(level)
	return l
}

// GetLevel returns the level set by Init or SetLevel
func (l *Logger) GetLevel() zerolog.Level {
	return l.level
}

// SetMaxSize sets the size in megabytes at which the log file is rotated
func (l *Logger) SetMaxSize(size int) *Logger {
	if l.file != nil {
		l.file.MaxSize = size
	}
	return l
}

// SetMaxBackups sets the number of rotated files to keep
func (l *Logger) SetMaxBackups(backups int) *Logger {
	if l.file != nil {
		l.file.MaxBackups = backups
	}
	return l
}

// Path returns the log file path or an empty string without a log file
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Filename
}

// Outputs returns the configured writers
func (l *Logger) Outputs() []io.Writer {
	return l.outputs
}

// Rotate starts a new log file
func (l *Logger) Rotate() {
	if l.file == nil {
		return
	}
	if err := l.file.Rotate(); err != nil {
		log.Error().Err(err).Msg("failed to rotate log file")
	}
}

// Stop flushes the outputs and closes the log file
func (l *Logger) Stop() {
	for _, output := range l.outputs {
		if syncer, ok := output.(interface{ Sync() error }); ok {
			_ = syncer.Sync()
		}
	}
	if l.file == nil {
		return
	}
	if err := l.file.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close log file")
	}
}
