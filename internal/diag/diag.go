// Package diag implements the compiler's diagnostics taxonomy (spec.md §7)
// and the append-only buffer that is the pipeline's one piece of shared
// mutable state (spec.md §5).
package diag

import (
	"errors"
	"fmt"

	"github.com/tako-lang/tako/internal/token"
)

// Severity distinguishes fatal errors from non-fatal warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is the structured record exposed to callers (spec.md §6.4).
type Diagnostic struct {
	Severity   Severity
	Code       string
	Message    string
	Position   *token.Position
	Suggestion string
}

func (d Diagnostic) String() string {
	if d.Position != nil {
		return fmt.Sprintf("%s: %s (%s)", d.Severity, d.Message, d.Position)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Buffer accumulates diagnostics for the duration of one compilation. It is
// append-only and not safe for concurrent use from multiple goroutines —
// the compiler itself is single-threaded (spec.md §5).
type Buffer struct {
	items []Diagnostic
}

// NewBuffer returns an empty diagnostics buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Error appends a fatal diagnostic.
func (b *Buffer) Error(code, msg string, pos *token.Position) {
	b.items = append(b.items, Diagnostic{Severity: SeverityError, Code: code, Message: msg, Position: pos})
}

// ErrorSuggest appends a fatal diagnostic with a "did you mean" suggestion.
func (b *Buffer) ErrorSuggest(code, msg, suggestion string, pos *token.Position) {
	b.items = append(b.items, Diagnostic{Severity: SeverityError, Code: code, Message: msg, Position: pos, Suggestion: suggestion})
}

// Warn appends a non-fatal diagnostic.
func (b *Buffer) Warn(code, msg string, pos *token.Position) {
	b.items = append(b.items, Diagnostic{Severity: SeverityWarning, Code: code, Message: msg, Position: pos})
}

// All returns every accumulated diagnostic, in emission order.
func (b *Buffer) All() []Diagnostic {
	return b.items
}

// HasErrors reports whether any fatal diagnostic has been recorded.
func (b *Buffer) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Sentinel errors for the taxonomy in spec.md §7. Phase-specific errors
// wrap one of these with fmt.Errorf("...: %w", Sentinel) so callers can use
// errors.Is to classify a failure without a bespoke error-code type.
var (
	ErrSyntax        = errors.New("syntax error")
	ErrImport        = errors.New("import error")
	ErrType          = errors.New("type error")
	ErrName          = errors.New("name error")
	ErrIO            = errors.New("io error")
	ErrSecurity      = errors.New("security error")
	ErrStackOverflow = errors.New("stack overflow")
)

// CompileError is a fatal error carrying the source position where it was
// detected, following the teacher's fmt.Errorf-wrapping convention rather
// than a bespoke exception hierarchy.
type CompileError struct {
	Pos     token.Position
	Wrapped error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Wrapped)
}

func (e *CompileError) Unwrap() error { return e.Wrapped }

// NewError builds a CompileError wrapping one of the Err* sentinels with a
// formatted message, e.g. NewError(pos, ErrName, "undefined variable %q", name).
func NewError(pos token.Position, sentinel error, format string, args ...any) *CompileError {
	return &CompileError{Pos: pos, Wrapped: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}
