// Package lexer implements the expression tokenizer.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/tanersaydam/mathexpr/pkg/ast"
	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Literals
	TokNumber TokenType = iota

	// Identifiers
	TokIdent

	// Punctuation
	TokLParen // (
	TokRParen // )

	// Arithmetic operators
	TokPlus  // +
	TokMinus // -
	TokStar  // *
	TokSlash // /

	// Special
	TokEOF
)

var tokenNames = [...]string{
	TokNumber: "number",
	TokIdent:  "identifier",
	TokLParen: "'('",
	TokRParen: "')'",
	TokPlus:   "'+'",
	TokMinus:  "'-'",
	TokStar:   "'*'",
	TokSlash:  "'/'",
	TokEOF:    "end of input",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '#' {
			// Skip comment to end of line
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) scanNumber() (Token, error) {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	if !s.atEnd() && s.peek() == '.' {
		s.advance() // consume '.'
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	// Optional exponent
	if !s.atEnd() && (s.peek() == 'e' || s.peek() == 'E') {
		s.advance() // consume e/E
		if !s.atEnd() && (s.peek() == '+' || s.peek() == '-') {
			s.advance()
		}
		if !isDigit(s.peek()) {
			return Token{}, s.lexError(startLine, startCol, "malformed exponent in number literal")
		}
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	if !s.atEnd() && isAlpha(s.peek()) {
		return Token{}, s.lexError(startLine, startCol,
			fmt.Sprintf("unexpected character '%c' after number", s.peek()))
	}

	return Token{
		Type:  TokNumber,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}, nil
}

func (s *scanner) scanIdent() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	return Token{
		Type:  TokIdent,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	var typ TokenType
	switch ch {
	case '(':
		typ = TokLParen
	case ')':
		typ = TokRParen
	case '+':
		typ = TokPlus
	case '-':
		typ = TokMinus
	case '*':
		typ = TokStar
	case '/':
		typ = TokSlash
	default:
		if isDigit(ch) || (ch == '.' && isDigit(s.peekAt(1))) {
			return s.scanNumber()
		}
		if isAlpha(ch) {
			return s.scanIdent(), nil
		}
		s.advance()
		if ch >= utf8.RuneSelf {
			r, _ := utf8.DecodeRuneInString(s.source[s.pos-1:])
			return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character %q", r))
		}
		return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character %q", ch))
	}

	s.advance()
	return Token{Type: typ, Value: string(ch), Span: s.span(startLine, startCol)}, nil
}

// Tokenize breaks source code into a slice of tokens.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
