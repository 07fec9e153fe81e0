// Package logging routes the log events of omniversion packages to one
// zerolog logger chosen by the process.
//
// Library packages hold a package logger from For and never configure
// output themselves. Until a binary calls Install every event is discarded,
// so importing the library writes nothing:
//
//	logging.Install(zerolog.New(os.Stderr).With().Timestamp().Logger())
//	logging.SetPackageLevel("cache", zerolog.ErrorLevel)
//
//	var logger = logging.For("version")
//	logger.Debug().Str("format", "n.n").Msg("compiled format")
//
// Events are plain *zerolog.Event values. A filtered event is nil, which
// zerolog treats as a no-op.
package logging

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// state is replaced as a whole on every change and never mutated
type state struct {
	base   zerolog.Logger
	levels map[string]zerolog.Level
}

var (
	current atomic.Pointer[state]
	// mu serializes writers of current
	mu sync.Mutex
)

func init() {
	current.Store(&state{base: zerolog.Nop()})
}

func update(fn func(s *state)) {
	mu.Lock()
	defer mu.Unlock()
	old := current.Load()
	next := &state{base: old.base, levels: maps.Clone(old.levels)}
	fn(next)
	current.Store(next)
}

// Install makes l the destination of every package logger. Per package
// levels set before stay in effect.
func Install(l zerolog.Logger) {
	update(func(s *state) { s.base = l })
}

// Reset discards all events again and clears the per package levels
func Reset() {
	update(func(s *state) {
		s.base = zerolog.Nop()
		s.levels = nil
	})
}

// SetPackageLevel sets the minimum level of events logged by pkg. It is
// applied on top of the level of the installed logger, so it can only
// make a package quieter or let it through where the installed logger
// already does. zerolog.Disabled silences the package.
func SetPackageLevel(pkg string, level zerolog.Level) {
	update(func(s *state) {
		if s.levels == nil {
			s.levels = make(map[string]zerolog.Level)
		}
		s.levels[pkg] = level
	})
}

// ResetPackageLevel removes the level set for pkg
func ResetPackageLevel(pkg string) {
	update(func(s *state) { delete(s.levels, pkg) })
}

// PackageLevel returns the effective minimum level of pkg
func PackageLevel(pkg string) zerolog.Level {
	s := current.Load()
	level := s.base.GetLevel()
	if override, ok := s.levels[pkg]; ok && override > level {
		level = override
	}
	if global := zerolog.GlobalLevel(); global > level {
		level = global
	}
	return level
}

// Packages returns the sorted names of packages with their own level
func Packages() []string {
	var names []string
	for name := range current.Load().levels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Logger is the logger of one package. It looks up the installed logger
// on every event, so package level variables follow later Install calls.
type Logger struct {
	pkg string
}

// For returns the logger of pkg. Its events carry a "package" field.
func For(pkg string) *Logger {
	return &Logger{pkg: pkg}
}

// Package returns the package name of the logger
func (l *Logger) Package() string {
	return l.pkg
}

// Enabled reports whether events at level would be written
func (l *Logger) Enabled(level zerolog.Level) bool {
	return level >= PackageLevel(l.pkg) && level < zerolog.Disabled
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	s := current.Load()
	if override, ok := s.levels[l.pkg]; ok && level < override {
		return nil
	}
	return s.base.WithLevel(level).Str("package", l.pkg)
}

// Trace starts a trace event
func (l *Logger) Trace() *zerolog.Event { return l.event(zerolog.TraceLevel) }

// Debug starts a debug event
func (l *Logger) Debug() *zerolog.Event { return l.event(zerolog.DebugLevel) }

// Info starts an info event
func (l *Logger) Info() *zerolog.Event { return l.event(zerolog.InfoLevel) }

// Warn starts a warning event
func (l *Logger) Warn() *zerolog.Event { return l.event(zerolog.WarnLevel) }

// Error starts an error event
func (l *Logger) Error() *zerolog.Event { return l.event(zerolog.ErrorLevel) }
