// Package validator implements static checks on expression trees.
package validator

import (
	"fmt"

	"github.com/tanersaydam/mathexpr/pkg/ast"
	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
)

// Options controls which checks Validate runs.
type Options struct {
	// Known is the set of bound variable names. When nil, variables are not
	// checked.
	Known map[string]bool
	// MaxDepth limits the tree depth. Zero means unlimited.
	MaxDepth int
}

// KnownNames builds an Options.Known set from a list of names.
func KnownNames(names []string) map[string]bool {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	return known
}

type validator struct {
	opts     Options
	diags    []diagnostics.Diagnostic
	reported map[string]bool
}

// Validate checks expr without evaluating it and returns diagnostics.
// Reported problems: malformed nodes, unbound variables (once per name),
// divisions by a literal zero and trees deeper than MaxDepth.
func Validate(expr ast.Expr, opts Options) []diagnostics.Diagnostic {
	v := &validator{opts: opts, reported: make(map[string]bool)}

	if expr == nil {
		v.addDiag(diagnostics.EAst, "empty expression tree", nil, "")
		return v.diags
	}

	v.validateExpr(expr)

	if opts.MaxDepth > 0 && !v.malformed() {
		if depth := ast.Depth(expr); depth > opts.MaxDepth {
			v.addDiag(diagnostics.EDepth,
				fmt.Sprintf("expression depth %d exceeds limit (max %d)", depth, opts.MaxDepth),
				spanPtr(expr), "raise maxDepth or simplify the expression")
		}
	}

	return v.diags
}

func (v *validator) addDiag(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (v *validator) malformed() bool {
	for _, d := range v.diags {
		if d.Code == diagnostics.EAst {
			return true
		}
	}
	return false
}

func (v *validator) validateExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Number:
		if e == nil {
			v.addDiag(diagnostics.EAst, "nil number node", nil, "")
		}

	case *ast.Variable:
		if e == nil {
			v.addDiag(diagnostics.EAst, "nil variable node", nil, "")
			return
		}
		if e.Name == "" {
			v.addDiag(diagnostics.EAst, "variable with empty name", spanPtr(e), "")
			return
		}
		if v.opts.Known != nil && !v.opts.Known[e.Name] && !v.reported[e.Name] {
			v.reported[e.Name] = true
			v.addDiag(diagnostics.EUndefinedVariable,
				fmt.Sprintf("undefined variable '%s'", e.Name), spanPtr(e), v.suggest(e.Name))
		}

	case *ast.BinaryExpr:
		if e == nil {
			v.addDiag(diagnostics.EAst, "nil binary node", nil, "")
			return
		}
		switch e.Op {
		case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		default:
			v.addDiag(diagnostics.EAst, fmt.Sprintf("unknown operator '%s'", string(e.Op)), spanPtr(e), "")
		}
		if e.Left == nil || e.Right == nil {
			v.addDiag(diagnostics.EAst, fmt.Sprintf("%s node is missing an operand", e.Kind()), spanPtr(e), "")
		}
		if e.Op == ast.OpDiv {
			if num, ok := e.Right.(*ast.Number); ok && num != nil && num.Value == 0 {
				v.addDiag(diagnostics.EDivisionByZero, "division by zero", spanPtr(e), "the divisor is the literal 0")
			}
		}
		if e.Left != nil {
			v.validateExpr(e.Left)
		}
		if e.Right != nil {
			v.validateExpr(e.Right)
		}

	default:
		v.addDiag(diagnostics.EAst, fmt.Sprintf("invalid expression node %T", expr), nil, "")
	}
}

// suggest returns a "did you mean" hint naming the closest known variable.
func (v *validator) suggest(name string) string {
	best, bestDist := "", 0
	for known := range v.opts.Known {
		d := editDistance(name, known)
		if best == "" || d < bestDist || (d == bestDist && known < best) {
			best, bestDist = known, d
		}
	}
	if best != "" && bestDist <= maxSuggestDistance(name) {
		return fmt.Sprintf("did you mean '%s'?", best)
	}
	return fmt.Sprintf("bind it with --set %s=<value> or in a vars file", name)
}

func maxSuggestDistance(name string) int {
	if len(name) <= 2 {
		return 1
	}
	return 2
}

// editDistance is the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func spanPtr(n ast.Node) *ast.Span {
	span := n.NodeSpan()
	if span.IsZero() {
		return nil
	}
	return &span
}
