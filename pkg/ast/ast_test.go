package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tanersaydam/mathexpr/pkg/ast"
)

func TestNodeKinds(t *testing.T) {
	nodes := []ast.Node{
		ast.Num(42),
		ast.Var("x"),
		ast.Add(ast.Num(1), ast.Num(2)),
		ast.Sub(ast.Num(1), ast.Num(2)),
		ast.Mul(ast.Num(1), ast.Num(2)),
		ast.Div(ast.Num(1), ast.Num(2)),
		&ast.BinaryExpr{Op: "^"},
	}

	expected := []string{
		"Number", "Variable", "Add", "Subtract", "Multiply", "Divide", "BinaryExpr",
	}

	for i, node := range nodes {
		assert.Equal(t, expected[i], node.Kind(), "node %d", i)
	}
}

func TestFactoriesLeaveSpanEmpty(t *testing.T) {
	e := ast.Mul(ast.Add(ast.Var("a"), ast.Var("b")), ast.Var("c"))
	assert.True(t, e.NodeSpan().IsZero(), "expected zero span, got %+v", e.NodeSpan())
	assert.Equal(t, ast.OpMul, e.Op)
}

func TestWalkOrder(t *testing.T) {
	e := ast.Sub(ast.Num(10), ast.Sub(ast.Var("x"), ast.Num(2)))
	var kinds []string
	ast.Walk(e, func(n ast.Expr) bool {
		kinds = append(kinds, n.Kind())
		return true
	})
	assert.Equal(t, []string{"Subtract", "Number", "Subtract", "Variable", "Number"}, kinds)
}

func TestWalkSkipChildren(t *testing.T) {
	e := ast.Add(ast.Mul(ast.Var("a"), ast.Var("b")), ast.Var("c"))
	var seen []string
	ast.Walk(e, func(n ast.Expr) bool {
		seen = append(seen, n.Kind())
		return n.Kind() != "Multiply"
	})
	assert.Equal(t, []string{"Add", "Multiply", "Variable"}, seen)
}

func TestVariables(t *testing.T) {
	e := ast.Add(ast.Mul(ast.Var("c"), ast.Var("a")), ast.Div(ast.Var("a"), ast.Var("b")))
	assert.Equal(t, []string{"a", "b", "c"}, ast.Variables(e))
	assert.Empty(t, ast.Variables(ast.Num(1)))
}

func TestDepthAndCount(t *testing.T) {
	tests := []struct {
		name  string
		expr  ast.Expr
		depth int
		count int
	}{
		{"nil", nil, 0, 0},
		{"leaf", ast.Num(1), 1, 1},
		{"flat", ast.Add(ast.Num(1), ast.Num(2)), 2, 3},
		{"nested", ast.Mul(ast.Add(ast.Var("a"), ast.Var("b")), ast.Var("c")), 3, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.depth, ast.Depth(tt.expr), "Depth")
			assert.Equal(t, tt.count, ast.Count(tt.expr), "Count")
		})
	}
}
