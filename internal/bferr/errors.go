// Package bferr defines the structured diagnostics surfaced by the parser,
// and the helper used to wrap internal invariant violations so they carry a
// stack trace instead of surfacing as a bare Go panic.
package bferr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies the category of a parse error.
type Kind string

const (
	// UnclosedLoop is reported when EOF is reached while inside an open '['.
	UnclosedLoop Kind = "UnclosedLoop"
	// ExtraCloseLoop is reported when a ']' has no matching '['.
	ExtraCloseLoop Kind = "ExtraCloseLoop"
)

// SourceLocation pinpoints a diagnostic in the original source text. Column
// is a 1-based display-width column, not a byte offset, so that the caret
// in Error() lines up on wide-character terminals.
type SourceLocation struct {
	Line   int
	Column int
}

// ParseError is the error type returned by the parser. It always carries a
// SourceLocation and, when available, the offending source line so the
// caller can render a caret-annotated diagnostic without re-reading the
// source file.
type ParseError struct {
	Kind     Kind
	Message  string
	Location SourceLocation
	Source   string // the offending line, sans trailing newline
}

// NewUnclosedLoop builds the diagnostic raised when EOF is hit inside a '['.
func NewUnclosedLoop(line, column int, source string) *ParseError {
	return &ParseError{
		Kind:     UnclosedLoop,
		Message:  "unclosed loop: reached end of input inside '['",
		Location: SourceLocation{Line: line, Column: column},
		Source:   source,
	}
}

// NewExtraCloseLoop builds the diagnostic raised when a ']' has no opener.
func NewExtraCloseLoop(line, column int, source string) *ParseError {
	return &ParseError{
		Kind:     ExtraCloseLoop,
		Message:  "unmatched ']': no enclosing '['",
		Location: SourceLocation{Line: line, Column: column},
		Source:   source,
	}
}

// Error renders the diagnostic: the message, the source line, and a caret
// under the offending column.
func (e *ParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", e.Kind, e.Message)
	fmt.Fprintf(&sb, "  at line %d, column %d\n", e.Location.Line, e.Location.Column)
	if e.Source != "" {
		prefix := fmt.Sprintf("  %d | ", e.Location.Line)
		fmt.Fprintf(&sb, "%s%s\n", prefix, e.Source)
		if e.Location.Column > 0 {
			sb.WriteString(strings.Repeat(" ", len(prefix)+e.Location.Column-1))
		} else {
			sb.WriteString(strings.Repeat(" ", len(prefix)))
		}
		sb.WriteString("^\n")
	}
	return sb.String()
}

// Invariant wraps a violated-invariant message with a captured stack trace.
// A caller either returns it as an ordinary error (the Old optimizer does so
// when its fixed-point loop fails to converge) or panics with it; a panic is
// recovered by RecoverInvariant at the top of Compile and re-surfaced as a
// plain error carrying the stack text, so a host embedding this module never
// needs to import github.com/pkg/errors itself.
func Invariant(format string, args ...interface{}) error {
	return errors.WithStack(errors.Errorf("internal invariant violated: "+format, args...))
}

// RecoverInvariant turns a panic produced by a value from Invariant (or any
// error) into a returned error with its stack trace rendered inline. It is
// meant to be deferred at the top of a pipeline entry point.
func RecoverInvariant(errp *error) {
	if r := recover(); r != nil {
		if err, ok := r.(error); ok {
			*errp = fmt.Errorf("%+v", err)
			return
		}
		*errp = fmt.Errorf("internal invariant violated: %v", r)
	}
}
