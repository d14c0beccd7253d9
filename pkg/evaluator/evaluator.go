package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/tanersaydam/mathexpr/pkg/ast"
	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart TraceEventType = "run_start"
	TraceRunEnd   TraceEventType = "run_end"
	TraceLookup   TraceEventType = "lookup"
	TraceBinary   TraceEventType = "binary"
	TraceError    TraceEventType = "error"
)

// TraceEvent represents a single trace event emitted during evaluation.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ExecOptions configures Execute.
type ExecOptions struct {
	Trace func(event TraceEvent)
	RunID string
	// MaxDepth bounds recursion. Zero means unlimited, which is only safe
	// for trees of known, modest depth.
	MaxDepth int
}

// Stats summarises the work done by one evaluation.
type Stats struct {
	Nodes    int `json:"nodes"`
	Lookups  int `json:"lookups"`
	MaxDepth int `json:"maxDepth"`
}

// ExecResult holds the result of an Execute call.
type ExecResult struct {
	Value float64
	Stats Stats
}

type evaluator struct {
	ctx     context.Context
	opts    ExecOptions
	budget  Budget
	tracker BudgetTracker
}

// Evaluate reduces expr to a number using the bindings in env.
//
// Children are evaluated left before right, except for Divide, which
// evaluates its divisor first and fails with ErrDivisionByZero before
// touching the dividend when the divisor is zero (either sign). Unbound
// variables fail with ErrUndefinedVariable. NaN and infinities otherwise
// follow IEEE-754 arithmetic. A nil env behaves as an empty one.
func Evaluate(expr ast.Expr, env *Env) (float64, error) {
	ev := &evaluator{}
	return ev.eval(expr, env)
}

// Execute is Evaluate with tracing, a depth budget and cancellation. The
// context is polled once per node; evaluation itself never blocks.
func Execute(ctx context.Context, expr ast.Expr, env *Env, opts ExecOptions) (*ExecResult, error) {
	ev := &evaluator{
		ctx:    ctx,
		opts:   opts,
		budget: Budget{MaxDepth: opts.MaxDepth},
	}

	span := spanOf(expr)
	ev.emit(TraceRunStart, span, nil)

	val, err := ev.eval(expr, env)

	stats := Stats{
		Nodes:    ev.tracker.Nodes,
		Lookups:  ev.tracker.Lookups,
		MaxDepth: ev.tracker.MaxSeen,
	}

	if err != nil {
		data := map[string]any{"message": err.Error()}
		var errSpan *ast.Span
		if rtErr, ok := err.(*RuntimeError); ok {
			data["code"] = rtErr.Code
			errSpan = rtErr.Span
		}
		ev.emit(TraceError, errSpan, data)
		ev.emit(TraceRunEnd, span, map[string]any{"ok": false})
		return &ExecResult{Stats: stats}, err
	}

	ev.emit(TraceRunEnd, span, map[string]any{"ok": true, "value": jsonSafe(val)})
	return &ExecResult{Value: val, Stats: stats}, nil
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span, data map[string]any) {
	if ev.opts.Trace == nil {
		return
	}
	ev.opts.Trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     ev.opts.RunID,
		Event:     event,
		Span:      span,
		Data:      data,
	})
}

func spanOf(n ast.Node) *ast.Span {
	if n == nil {
		return nil
	}
	span := n.NodeSpan()
	if span.IsZero() {
		return nil
	}
	return &span
}

func (ev *evaluator) eval(expr ast.Expr, env *Env) (float64, error) {
	if ev.ctx != nil {
		if err := ev.ctx.Err(); err != nil {
			return 0, &RuntimeError{
				Code:    diagnostics.ECanceled,
				Message: fmt.Sprintf("evaluation canceled: %s", err),
				cause:   err,
			}
		}
	}

	ev.tracker.enter()
	defer ev.tracker.leave()

	if ev.budget.exceeded(&ev.tracker) {
		return 0, withSpan(&RuntimeError{
			Code:    diagnostics.EDepth,
			Message: fmt.Sprintf("expression depth exceeds limit (max %d)", ev.budget.MaxDepth),
		}, expr)
	}

	switch e := expr.(type) {
	case *ast.Number:
		if e != nil {
			return e.Value, nil
		}
	case *ast.Variable:
		if e != nil {
			return ev.evalVariable(e, env)
		}
	case *ast.BinaryExpr:
		if e != nil {
			return ev.evalBinary(e, env)
		}
	}

	return 0, &RuntimeError{
		Code:    diagnostics.EAst,
		Message: fmt.Sprintf("invalid expression node %T", expr),
	}
}

func (ev *evaluator) evalVariable(e *ast.Variable, env *Env) (float64, error) {
	ev.tracker.Lookups++
	val, err := env.GetValue(e.Name)
	if err != nil {
		return 0, withSpan(err, e)
	}
	if ev.opts.Trace != nil {
		ev.emit(TraceLookup, spanOf(e), map[string]any{"name": e.Name, "value": jsonSafe(val)})
	}
	return val, nil
}

func (ev *evaluator) evalBinary(e *ast.BinaryExpr, env *Env) (float64, error) {
	var result float64

	switch e.Op {
	case ast.OpDiv:
		divisor, err := ev.eval(e.Right, env)
		if err != nil {
			return 0, err
		}
		// Catches -0 as well.
		if divisor == 0 {
			return 0, withSpan(&RuntimeError{
				Code:    diagnostics.EDivisionByZero,
				Message: "division by zero",
			}, e)
		}
		dividend, err := ev.eval(e.Left, env)
		if err != nil {
			return 0, err
		}
		result = dividend / divisor

	case ast.OpAdd, ast.OpSub, ast.OpMul:
		left, err := ev.eval(e.Left, env)
		if err != nil {
			return 0, err
		}
		right, err := ev.eval(e.Right, env)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case ast.OpAdd:
			result = left + right
		case ast.OpSub:
			result = left - right
		case ast.OpMul:
			result = left * right
		}

	default:
		return 0, withSpan(&RuntimeError{
			Code:    diagnostics.EAst,
			Message: fmt.Sprintf("unknown operator '%s'", string(e.Op)),
		}, e)
	}

	if ev.opts.Trace != nil {
		ev.emit(TraceBinary, spanOf(e), map[string]any{
			"op":     string(e.Op),
			"kind":   e.Kind(),
			"result": jsonSafe(result),
		})
	}
	return result, nil
}
