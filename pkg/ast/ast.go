// Package ast defines the arithmetic expression tree.
package ast

import "sort"

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// IsZero reports whether the span carries no location, as for trees built
// directly with the factory functions.
func (s Span) IsZero() bool {
	return s == Span{}
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
)

// Expr is the closed set of expression nodes: *Number, *Variable and
// *BinaryExpr. The marker method keeps implementations inside this package.
type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Terminals ---

// Number is a numeric constant.
type Number struct {
	Span  Span
	Value float64
}

func (n *Number) Kind() string   { return "Number" }
func (n *Number) NodeSpan() Span { return n.Span }
func (n *Number) exprNode()      {}

// Variable is resolved against the environment at evaluation time.
type Variable struct {
	Span Span
	Name string
}

func (n *Variable) Kind() string   { return "Variable" }
func (n *Variable) NodeSpan() Span { return n.Span }
func (n *Variable) exprNode()      {}

// --- Non-terminals ---

// BinaryExpr covers the Add, Subtract, Multiply and Divide variants.
type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string {
	switch n.Op {
	case OpAdd:
		return "Add"
	case OpSub:
		return "Subtract"
	case OpMul:
		return "Multiply"
	case OpDiv:
		return "Divide"
	}
	return "BinaryExpr"
}
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

// --- Factories ---

// Num creates a Number node.
func Num(v float64) *Number {
	return &Number{Value: v}
}

// Var creates a Variable node.
func Var(name string) *Variable {
	return &Variable{Name: name}
}

// Add creates an Add node.
func Add(left, right Expr) *BinaryExpr {
	return &BinaryExpr{Op: OpAdd, Left: left, Right: right}
}

// Sub creates a Subtract node.
func Sub(left, right Expr) *BinaryExpr {
	return &BinaryExpr{Op: OpSub, Left: left, Right: right}
}

// Mul creates a Multiply node.
func Mul(left, right Expr) *BinaryExpr {
	return &BinaryExpr{Op: OpMul, Left: left, Right: right}
}

// Div creates a Divide node.
func Div(left, right Expr) *BinaryExpr {
	return &BinaryExpr{Op: OpDiv, Left: left, Right: right}
}

// --- Traversal ---

// Walk visits expr and its descendants in pre-order, left before right.
// Returning false from fn skips the children of the current node.
func Walk(expr Expr, fn func(Expr) bool) {
	if expr == nil {
		return
	}
	if !fn(expr) {
		return
	}
	if bin, ok := expr.(*BinaryExpr); ok {
		Walk(bin.Left, fn)
		Walk(bin.Right, fn)
	}
}

// Variables returns the distinct variable names referenced by expr, sorted.
func Variables(expr Expr) []string {
	seen := make(map[string]bool)
	Walk(expr, func(e Expr) bool {
		if v, ok := e.(*Variable); ok {
			seen[v.Name] = true
		}
		return true
	})
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func Depth(expr Expr) int {
	switch e := expr.(type) {
	case nil:
		return 0
	case *BinaryExpr:
		return 1 + max(Depth(e.Left), Depth(e.Right))
	default:
		return 1
	}
}

// Count returns the total number of nodes in expr.
func Count(expr Expr) int {
	n := 0
	Walk(expr, func(Expr) bool {
		n++
		return true
	})
	return n
}
