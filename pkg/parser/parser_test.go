package parser_test

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanersaydam/mathexpr/pkg/ast"
	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
	"github.com/tanersaydam/mathexpr/pkg/parser"
)

// helper: parse source and assert no diagnostics
func mustParse(t *testing.T, source string) ast.Expr {
	t.Helper()
	expr, diags := parser.Parse(source, "test.expr")
	require.Empty(t, diags, "unexpected diagnostics: %s", diagnostics.FormatDiagnostics(diags, true))
	require.NotNil(t, expr)
	return expr
}

// helper: parse source and assert diagnostics are returned
func mustFail(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	expr, diags := parser.Parse(source, "test.expr")
	require.NotEmpty(t, diags, "expected parse to fail, got %T", expr)
	assert.Nil(t, expr, "expected nil expression on failure")
	return diags
}

// shape renders a tree as a fully parenthesised prefix string so tests can
// compare structure without spans.
func shape(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Number:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	case *ast.Variable:
		return n.Name
	case *ast.BinaryExpr:
		return "(" + string(n.Op) + " " + shape(n.Left) + " " + shape(n.Right) + ")"
	}
	return "?"
}

// ---- 1. Terminals ----

func TestNumberLiteral(t *testing.T) {
	tests := []struct {
		source string
		want   float64
	}{
		{"0", 0},
		{"42", 42},
		{"3.25", 3.25},
		{"1e3", 1000},
		{".5", 0.5},
		{"-7", -7},
		{"--7", 7},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			expr := mustParse(t, tt.source)
			require.IsType(t, &ast.Number{}, expr)
			assert.Equal(t, tt.want, expr.(*ast.Number).Value)
		})
	}
}

func TestHugeLiteralIsInf(t *testing.T) {
	expr := mustParse(t, "1e400")
	require.IsType(t, &ast.Number{}, expr)
	assert.True(t, math.IsInf(expr.(*ast.Number).Value, 1), "expected +Inf")
}

func TestVariable(t *testing.T) {
	expr := mustParse(t, "  rate_2 ")
	require.IsType(t, &ast.Variable{}, expr)
	v := expr.(*ast.Variable)
	assert.Equal(t, "rate_2", v.Name)
	assert.Equal(t, ast.Span{File: "test.expr", StartLine: 1, StartCol: 3, EndLine: 1, EndCol: 9}, v.Span)
}

// ---- 2. Precedence and associativity ----

func TestPrecedence(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"a + b * c", "(+ a (* b c))"},
		{"(a + b) * c", "(* (+ a b) c)"},
		{"a - b - c", "(- (- a b) c)"},
		{"a / b / c", "(/ (/ a b) c)"},
		{"10 - (3 - 2)", "(- 10 (- 3 2))"},
		{"a * b + c / d", "(+ (* a b) (/ c d))"},
		{"-a", "(* -1 a)"},
		{"-(a + b) * 2", "(* (* -1 (+ a b)) 2)"},
		{"a - -b", "(- a (* -1 b))"},
		{"((x))", "x"},
		{"# leading comment\n a +\n b # trailing\n", "(+ a b)"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, shape(mustParse(t, tt.source)))
		})
	}
}

func TestBinarySpans(t *testing.T) {
	expr := mustParse(t, "a +\n  b * c")
	require.IsType(t, &ast.BinaryExpr{}, expr)
	bin := expr.(*ast.BinaryExpr)
	assert.Equal(t, ast.Span{File: "test.expr", StartLine: 1, StartCol: 1, EndLine: 2, EndCol: 8}, bin.Span)
	assert.Equal(t, "Add", bin.Kind())
}

// ---- 3. Errors ----

func TestParseErrors(t *testing.T) {
	tests := []struct {
		source string
		code   string
		substr string
	}{
		{"", diagnostics.EParse, "empty expression"},
		{"# nothing here", diagnostics.EParse, "empty expression"},
		{"a +", diagnostics.EParse, "end of input"},
		{"(a + b", diagnostics.EParse, "expected ')'"},
		{"a b", diagnostics.EParse, "after expression"},
		{"()", diagnostics.EParse, "empty parentheses"},
		{") a", diagnostics.EParse, "unexpected ')'"},
		{"* 2", diagnostics.EParse, "unexpected '*'"},
		{"1 2", diagnostics.EParse, "after expression"},
		{"a % 2", diagnostics.ELex, "unexpected character"},
		{"1e", diagnostics.ELex, "exponent"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			diags := mustFail(t, tt.source)
			assert.Equal(t, tt.code, diags[0].Code)
			assert.Contains(t, diags[0].Message, tt.substr)
			assert.NotNil(t, diags[0].Span, "expected a span on the diagnostic")
		})
	}
}

func TestUnclosedParenHint(t *testing.T) {
	diags := mustFail(t, "x * (a + b")
	assert.Contains(t, diags[0].Hint, "1:5", "hint should point at the open paren")
}

// ---- 4. Nesting limit ----

func TestDeepParensRejected(t *testing.T) {
	n := 1000000
	src := strings.Repeat("(", n) + "1" + strings.Repeat(")", n)
	diags := mustFail(t, src)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EParse, diags[0].Code)
	assert.Contains(t, diags[0].Message, "nested too deeply")
	require.NotNil(t, diags[0].Span)
	assert.Equal(t, parser.MaxNesting+1, diags[0].Span.StartCol)
}

func TestDeepUnaryMinusRejected(t *testing.T) {
	diags := mustFail(t, strings.Repeat("-", 1000000)+"1")
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EParse, diags[0].Code)
	assert.Contains(t, diags[0].Message, "nested too deeply")
}

func TestNestingAtLimit(t *testing.T) {
	n := parser.MaxNesting
	expr := mustParse(t, strings.Repeat("(", n)+"x"+strings.Repeat(")", n))
	assert.Equal(t, "x", shape(expr))

	expr = mustParse(t, strings.Repeat("-", n)+"2")
	assert.Equal(t, "2", shape(expr), "an even count of minus signs folds away")

	mustFail(t, strings.Repeat("(", n+1)+"x"+strings.Repeat(")", n+1))
}

func TestNestingResetsBetweenSiblings(t *testing.T) {
	n := parser.MaxNesting
	one := strings.Repeat("(", n) + "1" + strings.Repeat(")", n)
	mustParse(t, one+" + "+one)
}
