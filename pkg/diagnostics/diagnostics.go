// Package diagnostics defines coded diagnostics for lex, parse, validation and
// runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tanersaydam/mathexpr/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex               = "E_LEX"
	EParse             = "E_PARSE"
	EAst               = "E_AST"
	EUndefinedVariable = "E_UNDEFINED_VARIABLE"
	EDivisionByZero    = "E_DIVISION_BY_ZERO"
	EDepth             = "E_DEPTH"
	ECanceled          = "E_CANCELED"
	EConfig            = "E_CONFIG"
	EIO                = "E_IO"
)

// Diagnostic represents a lex, parse, validation or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	return FormatWithSource(d, "", pretty)
}

// FormatWithSource is FormatDiagnostic with an excerpt of the offending source
// line and a caret under the span start. An empty source omits the excerpt.
func FormatWithSource(d Diagnostic, source string, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if excerpt := Excerpt(source, d.Span); excerpt != "" {
		out += "\n" + excerpt
	}
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// Excerpt renders the source line a span starts on, followed by a caret line
// covering the span on that line.
func Excerpt(source string, span *ast.Span) string {
	if source == "" || span == nil || span.StartLine < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if span.StartLine > len(lines) {
		return ""
	}
	line := strings.TrimRight(lines[span.StartLine-1], "\r")
	col := span.StartCol
	if col < 1 || col > len(line)+1 {
		return ""
	}
	width := 1
	if span.EndLine == span.StartLine && span.EndCol > col {
		width = span.EndCol - col
	}
	if col-1+width > len(line) {
		width = max(1, len(line)-(col-1))
	}
	gutter := fmt.Sprintf("%4d | ", span.StartLine)
	return gutter + line + "\n" + strings.Repeat(" ", len(gutter)-2) + "| " +
		strings.Repeat(" ", col-1) + strings.Repeat("^", width)
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	return FormatAllWithSource(diags, "", pretty)
}

// FormatAllWithSource formats a slice of diagnostics with source excerpts.
func FormatAllWithSource(diags []Diagnostic, source string, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatWithSource(d, source, true)
	}
	return strings.Join(parts, "\n\n")
}
