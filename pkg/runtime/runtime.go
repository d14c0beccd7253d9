// Package runtime provides the top-level mathexpr orchestrator: parse,
// check and evaluate one source text.
package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tanersaydam/mathexpr/pkg/ast"
	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
	"github.com/tanersaydam/mathexpr/pkg/evaluator"
	"github.com/tanersaydam/mathexpr/pkg/formatter"
	"github.com/tanersaydam/mathexpr/pkg/parser"
	"github.com/tanersaydam/mathexpr/pkg/validator"
)

// Result holds the outcome of an evaluation.
type Result struct {
	Value float64
	Expr  ast.Expr
	RunID string
	Stats evaluator.Stats
}

// Runtime wires together the parser, validator and evaluator.
type Runtime struct {
	env      *evaluator.Env
	runID    string
	trace    func(event evaluator.TraceEvent)
	maxDepth int
}

// DefaultMaxDepth is the tree depth limit a Runtime applies unless
// WithMaxDepth says otherwise.
const DefaultMaxDepth = 100000

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithEnv sets the environment variables are resolved against.
func WithEnv(env *evaluator.Env) Option {
	return func(rt *Runtime) {
		rt.env = env
	}
}

// WithRunID sets the run ID for trace events. Without it each Run gets a
// fresh random ID.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithMaxDepth limits expression tree depth. Zero or less means unlimited.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = n
	}
}

// New creates a new Runtime with the given options.
// By default the environment is empty and depth is capped at DefaultMaxDepth.
func New(opts ...Option) *Runtime {
	rt := &Runtime{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.maxDepth < 0 {
		rt.maxDepth = 0
	}
	if rt.env == nil {
		rt.env = evaluator.NewEnv(nil)
	}
	return rt
}

// Env returns the runtime's environment.
func (rt *Runtime) Env() *evaluator.Env {
	return rt.env
}

// Run parses and evaluates source. It does not run the validator: the
// parser only builds well-formed trees, and unbound variables and zero
// divisors are left for the evaluator so that they carry runtime error
// codes. Parse problems come back as *DiagnosticError; evaluation failures
// as *evaluator.RuntimeError.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	expr, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	runID := rt.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	res, err := evaluator.Execute(ctx, expr, rt.env, evaluator.ExecOptions{
		Trace:    rt.trace,
		RunID:    runID,
		MaxDepth: rt.maxDepth,
	})
	result := &Result{Expr: expr, RunID: runID}
	if res != nil {
		result.Stats = res.Stats
	}
	if err != nil {
		return result, err
	}
	result.Value = res.Value
	return result, nil
}

// Check parses and validates source without evaluating it. Variables are
// checked against the runtime's environment.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	expr, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(expr, validator.Options{
		Known:    validator.KnownNames(rt.env.Names()),
		MaxDepth: rt.maxDepth,
	})
}

// Format parses and formats source. Comments are dropped.
func (rt *Runtime) Format(source, filename string) (string, error) {
	expr, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(expr) + "\n", nil
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
