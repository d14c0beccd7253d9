// Package evaluator evaluates expression trees against an environment of
// variable bindings.
package evaluator

import (
	"errors"

	"github.com/tanersaydam/mathexpr/pkg/ast"
	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
)

// Sentinels for errors.Is. Every *RuntimeError matches the sentinel for its
// Code.
var (
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrDepthExceeded     = errors.New("expression depth exceeded")
	ErrInvalidNode       = errors.New("invalid expression node")
)

var sentinels = map[string]error{
	diagnostics.EUndefinedVariable: ErrUndefinedVariable,
	diagnostics.EDivisionByZero:    ErrDivisionByZero,
	diagnostics.EDepth:             ErrDepthExceeded,
	diagnostics.EAst:               ErrInvalidNode,
}

// RuntimeError represents an error raised while evaluating an expression.
// It aborts the whole evaluation; no partial result is produced.
type RuntimeError struct {
	Code    string
	Message string
	// Name is the unbound variable for E_UNDEFINED_VARIABLE.
	Name string
	Span *ast.Span
	// cause is set for E_CANCELED and wraps the context error.
	cause error
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Is reports whether target is the sentinel for this error's code.
func (e *RuntimeError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

func (e *RuntimeError) Unwrap() error {
	return e.cause
}

// Diagnostic converts the error into a diagnostic for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	hint := ""
	switch e.Code {
	case diagnostics.EUndefinedVariable:
		hint = "bind it with --set " + e.Name + "=<value> or in a vars file"
	case diagnostics.EDivisionByZero:
		hint = "the divisor evaluated to zero"
	case diagnostics.EDepth:
		hint = "raise maxDepth or simplify the expression"
	}
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, hint)
}

// withSpan attaches the node's source span when the error has none yet and
// the node came from the parser.
func withSpan(err error, node ast.Node) error {
	rtErr, ok := err.(*RuntimeError)
	if !ok || rtErr.Span != nil || node == nil {
		return err
	}
	span := node.NodeSpan()
	if span.IsZero() {
		return err
	}
	cp := *rtErr
	cp.Span = &span
	return &cp
}
