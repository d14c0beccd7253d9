// Package parser implements the expression parser.
package parser

import (
	"fmt"
	"strconv"

	"github.com/tanersaydam/mathexpr/pkg/ast"
	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
	"github.com/tanersaydam/mathexpr/pkg/lexer"
)

// MaxNesting bounds how deeply parentheses and prefix minus may nest.
const MaxNesting = 10000

type parser struct {
	tokens  []lexer.Token
	pos     int
	diags   []diagnostics.Diagnostic
	nesting int
}

// Parse tokenizes source and parses it into an expression tree.
// The input must hold exactly one expression; comments and blank lines
// around it are allowed.
func Parse(source, filename string) (ast.Expr, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	expr := p.parseTop()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return expr, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) addError(msg string, span *ast.Span, hint string) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, hint))
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// nest records one more level of nesting at tok. It reports false, after
// adding a diagnostic, once MaxNesting is exceeded.
func (p *parser) nest(tok lexer.Token) bool {
	p.nesting++
	if p.nesting > MaxNesting {
		p.addError("expression nested too deeply", &tok.Span,
			fmt.Sprintf("at most %d levels of parentheses and unary minus are allowed", MaxNesting))
		return false
	}
	return true
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", tok.Value)
}

// --- Top level ---

func (p *parser) parseTop() ast.Expr {
	if p.peek() == lexer.TokEOF {
		tok := p.current()
		p.addError("empty expression", &tok.Span, "write an expression such as (a + b) * c")
		return nil
	}
	expr := p.parseAdditive()
	if expr == nil {
		return nil
	}
	if p.peek() != lexer.TokEOF {
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected %s after expression", describe(tok)), &tok.Span,
			"operators must sit between operands; only + - * / are supported")
		return nil
	}
	return expr
}

// --- Precedence climbing ---

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

// parseUnary handles prefix minus. The grammar has no negation node, so a
// negated literal folds into the literal and anything else becomes -1 * x.
func (p *parser) parseUnary() ast.Expr {
	if p.peek() == lexer.TokMinus {
		start := p.advance()
		defer func() { p.nesting-- }()
		if !p.nest(start) {
			return nil
		}
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		span := p.spanFromTo(start.Span, operand.NodeSpan())
		if num, ok := operand.(*ast.Number); ok {
			return &ast.Number{Span: span, Value: -num.Value}
		}
		return &ast.BinaryExpr{
			Span:  span,
			Op:    ast.OpMul,
			Left:  &ast.Number{Span: start.Span, Value: -1},
			Right: operand,
		}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.peek() {
	case lexer.TokLParen:
		// Grouped expression
		open := p.advance()
		defer func() { p.nesting-- }()
		if !p.nest(open) {
			return nil
		}
		if p.peek() == lexer.TokRParen {
			tok := p.current()
			p.addError("empty parentheses", &tok.Span, "")
			return nil
		}
		expr := p.parseAdditive()
		if expr == nil {
			return nil
		}
		if p.peek() != lexer.TokRParen {
			tok := p.current()
			span := open.Span
			p.addError(fmt.Sprintf("expected ')', got %s", describe(tok)), &tok.Span,
				fmt.Sprintf("the '(' at %d:%d is never closed", span.StartLine, span.StartCol))
			return nil
		}
		p.advance()
		return expr

	case lexer.TokNumber:
		tok := p.advance()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			// Out-of-range literals come back as ±Inf with ErrRange.
			if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
				p.addError(fmt.Sprintf("invalid number literal '%s'", tok.Value), &tok.Span, "")
				return nil
			}
		}
		return &ast.Number{Span: tok.Span, Value: val}

	case lexer.TokIdent:
		tok := p.advance()
		return &ast.Variable{Span: tok.Span, Name: tok.Value}

	default:
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected %s, expected a number, variable or '('", describe(tok)), &tok.Span, "")
		return nil
	}
}
