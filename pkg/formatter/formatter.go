// Package formatter prints expression trees back to canonical infix source.
package formatter

import (
	"math"
	"strconv"
	"strings"

	"github.com/tanersaydam/mathexpr/pkg/ast"
)

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpAdd: 1, ast.OpSub: 1,
	ast.OpMul: 2, ast.OpDiv: 2,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// Operators are left-associative: a same-precedence right child keeps
	// its parentheses so the tree shape survives a round trip.
	if childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints an expression tree as a single line of infix source.
func Format(expr ast.Expr) string {
	var b strings.Builder
	writeExpr(&b, expr)
	return b.String()
}

func writeExpr(b *strings.Builder, e ast.Expr) {
	switch expr := e.(type) {
	case *ast.Number:
		b.WriteString(FormatNumber(expr.Value))
	case *ast.Variable:
		b.WriteString(expr.Name)
	case *ast.BinaryExpr:
		writeOperand(b, expr.Left, expr.Op, false)
		b.WriteByte(' ')
		b.WriteString(string(expr.Op))
		b.WriteByte(' ')
		writeOperand(b, expr.Right, expr.Op, true)
	default:
		b.WriteString("<nil>")
	}
}

func writeOperand(b *strings.Builder, child ast.Expr, parentOp ast.BinaryOp, isRight bool) {
	if needsParens(child, parentOp, isRight) {
		b.WriteByte('(')
		writeExpr(b, child)
		b.WriteByte(')')
		return
	}
	writeExpr(b, child)
}

// FormatNumber renders a float the way the parser reads it back: integers
// without a decimal point, everything else in the shortest exact form.
// Infinities use an out-of-range literal that parses back to ±Inf. NaN has
// no literal, so it becomes the parenthesised product (0 * 1e999), which
// evaluates to NaN.
func FormatNumber(value float64) string {
	switch {
	case math.IsNaN(value):
		return "(0 * 1e999)"
	case math.IsInf(value, 1):
		return "1e999"
	case math.IsInf(value, -1):
		return "-1e999"
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}

// HasComments checks if a source string contains comments (# prefix), which
// Format does not preserve.
func HasComments(source string) bool {
	return strings.Contains(source, "#")
}

// Tree renders expr as an indented outline, one node per line, for the
// ast command.
func Tree(expr ast.Expr) string {
	var b strings.Builder
	writeTree(&b, expr, 0)
	return b.String()
}

func writeTree(b *strings.Builder, e ast.Expr, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	switch expr := e.(type) {
	case *ast.Number:
		if math.IsNaN(expr.Value) {
			b.WriteString("Number NaN\n")
			break
		}
		b.WriteString("Number " + FormatNumber(expr.Value) + "\n")
	case *ast.Variable:
		b.WriteString("Variable " + expr.Name + "\n")
	case *ast.BinaryExpr:
		b.WriteString(expr.Kind() + "\n")
		writeTree(b, expr.Left, depth+1)
		writeTree(b, expr.Right, depth+1)
	default:
		b.WriteString("<nil>\n")
	}
}
