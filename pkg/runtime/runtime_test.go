package runtime_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
	"github.com/tanersaydam/mathexpr/pkg/evaluator"
	"github.com/tanersaydam/mathexpr/pkg/runtime"
)

func demoEnv() *evaluator.Env {
	env := evaluator.NewEnv(nil)
	env.SetValue("a", 5)
	env.SetValue("b", 3)
	env.SetValue("c", 2)
	return env
}

func TestRun(t *testing.T) {
	rt := runtime.New(runtime.WithEnv(demoEnv()))
	res, err := rt.Run(context.Background(), "(a + b) * c", "demo.expr")
	require.NoError(t, err)
	assert.Equal(t, 16.0, res.Value)
	assert.Equal(t, "Multiply", res.Expr.Kind())
	assert.Equal(t, 5, res.Stats.Nodes)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err, "generated run id should be a UUID")
}

func TestRunFreshIDs(t *testing.T) {
	rt := runtime.New()
	r1, err := rt.Run(context.Background(), "1", "a.expr")
	require.NoError(t, err)
	r2, err := rt.Run(context.Background(), "1", "a.expr")
	require.NoError(t, err)
	assert.NotEqual(t, r1.RunID, r2.RunID)
}

func TestRunWithRunIDAndTrace(t *testing.T) {
	var events []evaluator.TraceEvent
	rt := runtime.New(
		runtime.WithEnv(demoEnv()),
		runtime.WithRunID("fixed"),
		runtime.WithTrace(func(ev evaluator.TraceEvent) { events = append(events, ev) }),
	)
	res, err := rt.Run(context.Background(), "a - b", "t.expr")
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.RunID)
	require.NotEmpty(t, events)
	assert.Equal(t, evaluator.TraceRunStart, events[0].Event)
	assert.Equal(t, evaluator.TraceRunEnd, events[len(events)-1].Event)
	for _, ev := range events {
		assert.Equal(t, "fixed", ev.RunID)
	}
}

func TestRunParseError(t *testing.T) {
	rt := runtime.New()
	res, err := rt.Run(context.Background(), "1 +", "bad.expr")
	assert.Nil(t, res)
	var dErr *runtime.DiagnosticError
	require.ErrorAs(t, err, &dErr)
	require.Len(t, dErr.Diagnostics, 1)
	assert.Equal(t, diagnostics.EParse, dErr.Diagnostics[0].Code)
	assert.Contains(t, err.Error(), diagnostics.EParse)
}

func TestRunRuntimeErrors(t *testing.T) {
	rt := runtime.New(runtime.WithEnv(demoEnv()))

	res, err := rt.Run(context.Background(), "a / (b - 3)", "div.expr")
	assert.ErrorIs(t, err, evaluator.ErrDivisionByZero)
	require.NotNil(t, res)
	assert.NotNil(t, res.Expr)

	_, err = rt.Run(context.Background(), "a + missing", "var.expr")
	assert.ErrorIs(t, err, evaluator.ErrUndefinedVariable)
	var rtErr *evaluator.RuntimeError
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, "missing", rtErr.Name)
	require.NotNil(t, rtErr.Span)
	assert.Equal(t, "var.expr", rtErr.Span.File)
}

func TestRunMaxDepth(t *testing.T) {
	rt := runtime.New(runtime.WithMaxDepth(2))
	_, err := rt.Run(context.Background(), "(1 + 2) * 3", "deep.expr")
	assert.True(t, errors.Is(err, evaluator.ErrDepthExceeded))
}

func TestRunDefaultMaxDepth(t *testing.T) {
	n := runtime.DefaultMaxDepth + 1
	src := strings.TrimSuffix(strings.Repeat("1 + ", n), " + ")

	_, err := runtime.New().Run(context.Background(), src, "chain.expr")
	assert.ErrorIs(t, err, evaluator.ErrDepthExceeded)

	res, err := runtime.New(runtime.WithMaxDepth(0)).Run(context.Background(), src, "chain.expr")
	require.NoError(t, err)
	assert.Equal(t, float64(n), res.Value)
}

func TestRunDeepNestingIsParseError(t *testing.T) {
	n := 1000000
	src := strings.Repeat("(", n) + "1" + strings.Repeat(")", n)
	_, err := runtime.New().Run(context.Background(), src, "nest.expr")
	var diagErr *runtime.DiagnosticError
	require.ErrorAs(t, err, &diagErr)
	require.Len(t, diagErr.Diagnostics, 1)
	assert.Equal(t, diagnostics.EParse, diagErr.Diagnostics[0].Code)
}

func TestRunLeavesZeroDivisorToEvaluator(t *testing.T) {
	_, err := runtime.New().Run(context.Background(), "x / 0", "zero.expr")
	var rtErr *evaluator.RuntimeError
	require.ErrorAs(t, err, &rtErr)
	assert.ErrorIs(t, err, evaluator.ErrDivisionByZero)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runtime.New().Run(ctx, "1 + 1", "c.expr")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck(t *testing.T) {
	rt := runtime.New(runtime.WithEnv(demoEnv()), runtime.WithMaxDepth(10))
	assert.Empty(t, rt.Check("(a + b) * c", "ok.expr"))

	diags := rt.Check("a + bb", "typo.expr")
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EUndefinedVariable, diags[0].Code)
	assert.Equal(t, "did you mean 'b'?", diags[0].Hint)

	diags = rt.Check("a / 0", "zero.expr")
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EDivisionByZero, diags[0].Code)

	diags = rt.Check("a $ b", "lex.expr")
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.ELex, diags[0].Code)
}

func TestFormat(t *testing.T) {
	rt := runtime.New()
	out, err := rt.Format("((a+b))*c   # total\n", "f.expr")
	require.NoError(t, err)
	assert.Equal(t, "(a + b) * c\n", out)

	out, err = rt.Format("10-(3-2)", "f.expr")
	require.NoError(t, err)
	assert.Equal(t, "10 - (3 - 2)\n", out)

	_, err = rt.Format("(", "f.expr")
	var dErr *runtime.DiagnosticError
	assert.ErrorAs(t, err, &dErr)
}
