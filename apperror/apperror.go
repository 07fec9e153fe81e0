// Package apperror provides the error type used across omniversion. It extends
// standard Go errors with a classification kind, a lightweight stack trace,
// nested causes and structured details.
//
// Every error produced by the version engine carries one of four kinds:
//   - KindFormat: a grammar text could not be compiled
//   - KindParse: a version string does not match a compiled grammar
//   - KindInvalidArgument: invalid numeric components, qualifiers or version text
//   - KindUnsupported: a typed accessor was used on a vector of the wrong shape
//
// Kinds are matched through errors.Is against the exported sentinels:
//
//	_, err := version.Compile("(n")
//	if errors.Is(err, apperror.ErrFormat) {
//		pos := err.(apperror.Error).GetDetail("position")
//		fmt.Println("grammar rejected at", pos)
//	}
//
// To print stack traces and details, set `flag.Debug = true` before printing errors.
package apperror

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/valentin-kaiser/omniversion/flag"
)

var (
	// TraceDelimiter is used to separate trace entries
	TraceDelimiter = " -> "
	// ErrorDelimiter is used to separate multiple errors
	ErrorDelimiter = " => "
	// ErrorFormat is the format for displaying the error message and additional errors
	ErrorFormat = "%s [%s]"
	// ErrorTraceFormat is the format for displaying the error message with a stack trace
	ErrorTraceFormat = "%s | %s"
	// WithDetails is a flag to control whether details should be included in the error output
	WithDetails = false

	anonymous = false
)

// Kind classifies an error
type Kind string

const (
	// KindUnknown is used for errors that were wrapped without a classification
	KindUnknown Kind = ""
	// KindFormat marks a malformed or illegal grammar text
	KindFormat Kind = "format"
	// KindParse marks a version string that does not match a grammar
	KindParse Kind = "parse"
	// KindInvalidArgument marks invalid input to a constructor
	KindInvalidArgument Kind = "invalid_argument"
	// KindUnsupported marks an operation that the value's shape does not support
	KindUnsupported Kind = "unsupported_operation"
)

// Sentinels for errors.Is. A sentinel matches any Error of the same kind.
var (
	ErrFormat          = Error{Kind: KindFormat}
	ErrParse           = Error{Kind: KindParse}
	ErrInvalidArgument = Error{Kind: KindInvalidArgument}
	ErrUnsupported     = Error{Kind: KindUnsupported}
)

// Error represents an application error with a kind, a stack trace and additional errors
type Error struct {
	Kind    Kind
	Trace   []string
	Errors  []error
	Context map[string]interface{}
	Message string
}

// NewError creates a new Error of the given kind
func NewError(kind Kind, msg string) Error {
	e := Error{
		Kind:    kind,
		Message: msg,
	}
	e.Trace = trace(e)
	return e
}

// NewErrorf creates a new Error of the given kind with a formatted message
func NewErrorf(kind Kind, format string, a ...interface{}) Error {
	e := Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, a...),
	}
	e.Trace = trace(e)
	return e
}

// Wrap adds a trace point to err. Errors that are not of type Error are
// converted and keep the original error as their cause.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(Error); ok {
		e.Trace = trace(e)
		return e
	}
	e := Error{
		Message: err.Error(),
		Errors:  []error{err},
	}
	e.Trace = trace(e)
	return e
}

// AddError adds an additional error to the Error instance
func (e Error) AddError(err error) Error {
	e.Errors = append(e.Errors, err)
	return e
}

// AddDetail adds a key-value pair to the error context
func (e Error) AddDetail(key string, value interface{}) Error {
	ctx := make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	e.Context = ctx
	return e
}

// GetDetail retrieves a value from the error context by key
// If the key does not exist, it returns nil
func (e Error) GetDetail(key string) interface{} {
	if e.Context == nil {
		return nil
	}
	return e.Context[key]
}

// Is reports whether target matches this error. A target Error without a
// message matches by kind only.
func (e Error) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(Error)
	if !ok {
		return e.Message == target.Error()
	}
	if t.Message == "" {
		return t.Kind != KindUnknown && e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Unwrap returns the first additional error, if any
func (e Error) Unwrap() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Error implements the error interface
// If debug mode is enabled, it includes the stack trace
func (e Error) Error() string {
	msg := e.Message
	if e.Kind != KindUnknown {
		msg = string(e.Kind) + ": " + msg
	}

	var errs []string
	for _, d := range e.Errors {
		if d == nil || d.Error() == e.Message {
			continue
		}
		errs = append(errs, d.Error())
	}
	if len(errs) > 0 {
		msg = fmt.Sprintf(ErrorFormat, msg, strings.Join(errs, ErrorDelimiter))
	}

	if WithDetails && len(e.Context) > 0 {
		msg += " | " + formatDetails(e.Context)
	}

	if flag.Debug && len(e.Trace) > 0 {
		t := make([]string, len(e.Trace))
		for i := range e.Trace {
			t[i] = e.Trace[len(e.Trace)-1-i]
		}
		return fmt.Sprintf(ErrorTraceFormat, strings.Join(t, TraceDelimiter), msg)
	}
	return msg
}

// KindOf returns the kind of err or KindUnknown if err is not an Error
func KindOf(err error) Kind {
	var e Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Anonymous enables or disables anonymous caller tracking
// When enabled, the trace uses the function name instead of the full file path
func Anonymous(enable bool) {
	anonymous = enable
}

func formatDetails(details map[string]interface{}) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, details[k]))
	}
	return strings.Join(parts, ", ")
}

// trace appends the location of the caller of the exported constructor
func trace(e Error) []string {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return e.Trace
	}

	t := make([]string, len(e.Trace), len(e.Trace)+1)
	copy(t, e.Trace)
	if anonymous {
		if f := runtime.FuncForPC(pc); f != nil {
			return append(t, fmt.Sprintf("%v:%v", f.Name(), line))
		}
		return t
	}
	return append(t, fmt.Sprintf("%s:%d", file, line))
}
