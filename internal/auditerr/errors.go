// Package auditerr provides the closed set of failure kinds an audit run can
// end with. Every pipeline stage returns one of these explicitly; the CLI maps
// the kind to an exit status through ExitCode.
package auditerr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindNotFound Kind = "NOT_FOUND"
	KindFormat   Kind = "FORMAT"
	KindEmpty    Kind = "EMPTY_RESULT"
	KindInternal Kind = "INTERNAL"
)

// Exit statuses returned by the CLI for each kind.
const (
	ExitInternal = 1
	ExitNotFound = 2
	ExitFormat   = 3
	ExitEmpty    = 4
)

// Error is the structured error returned by pipeline stages.
type Error struct {
	Kind Kind
	Op   string // stage or operation, e.g. "ingest"
	Path string // input source, if known
	Line int    // 1-based line in the source, 0 if not applicable
	Msg  string
	Err  error
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Kind, e.Op)
	if e.Path != "" {
		s += " " + e.Path
	}
	if e.Line > 0 {
		s += fmt.Sprintf(":%d", e.Line)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. A target with an
// Op set also has to match the operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e.Kind != t.Kind {
		return false
	}
	return t.Op == "" || t.Op == e.Op
}

// ExitCode maps the error kind to a process exit status.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindNotFound:
		return ExitNotFound
	case KindFormat:
		return ExitFormat
	case KindEmpty:
		return ExitEmpty
	default:
		return ExitInternal
	}
}

// Sentinels usable as errors.Is targets: errors.Is(err, auditerr.ErrNotFound).
var (
	ErrNotFound = &Error{Kind: KindNotFound}
	ErrFormat   = &Error{Kind: KindFormat}
	ErrEmpty    = &Error{Kind: KindEmpty}
)

// NotFound reports a missing input source.
func NotFound(op, path string, cause error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Path: path, Msg: "input not found", Err: cause}
}

// Format reports input that cannot be read as a table.
func Format(op, path string, line int, msg string, cause error) *Error {
	return &Error{Kind: KindFormat, Op: op, Path: path, Line: line, Msg: msg, Err: cause}
}

// Empty reports a normalized table with no usable rows.
func Empty(op, path string) *Error {
	return &Error{Kind: KindEmpty, Op: op, Path: path, Msg: "no rows left after normalization"}
}

// Internal wraps any other failure (I/O on the output side, cancellation).
func Internal(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: cause}
}

// KindOf extracts the kind from an error chain.
// Returns KindInternal for errors that are not *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// ExitCode returns the exit status for err: 0 for nil, the kind's status for
// an *Error anywhere in the chain, ExitInternal otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.ExitCode()
	}
	return ExitInternal
}
