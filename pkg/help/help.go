// Package help holds the built-in reference text shown by `mathexpr help`.
package help

import (
	"fmt"
	"sort"
	"strings"
)

// Version is the language reference version printed in QUICKREF.
const Version = "v0.1"

// QUICKREF is printed by `mathexpr help` without a topic.
const QUICKREF = `mathexpr ` + Version + ` quick reference

  mathexpr eval <file|->   evaluate one expression
  mathexpr check <file>    validate without evaluating
  mathexpr fmt <file>      print the canonical form
  mathexpr ast <file>      dump the expression tree
  mathexpr trace <jsonl>   summarise a trace file
  mathexpr demo            evaluate (a + b) * c with a=5, b=3, c=2

Expressions:   numbers, variables, + - * /, parentheses, unary minus
Variables:     --set name=value, --vars file.yaml, .mathexpr.yaml

Topics (mathexpr help <topic>): syntax, errors, config, trace, examples
`

// Topics maps topic names to their help text.
var Topics = map[string]string{
	"syntax": `Syntax

  expr     := term (('+' | '-') term)*
  term     := unary (('*' | '/') unary)*
  unary    := '-' unary | primary
  primary  := number | identifier | '(' expr ')'

  number      12, 1.5, .5, 2e3, 1.5E-4
  identifier  [A-Za-z_][A-Za-z0-9_]*
  comment     '#' to end of line

All operators are left-associative; * and / bind tighter than + and -.
A source file holds exactly one expression. Parentheses and unary minus
nest at most 10000 levels deep.
`,
	"errors": `Errors and exit codes

  E_LEX                 unexpected character in the source          exit 2
  E_PARSE               malformed expression                        exit 2
  E_UNDEFINED_VARIABLE  a variable has no binding                   exit 4
  E_DIVISION_BY_ZERO    the divisor evaluated to 0 or -0            exit 4
  E_DEPTH               tree deeper than maxDepth                   exit 4
  E_CANCELED            evaluation was interrupted                  exit 4
  E_AST                 malformed expression tree                   exit 4
  E_CONFIG              invalid config, vars file or --set          exit 1
  E_IO                  file could not be read or written           exit 1

The divisor of '/' is evaluated before the dividend: in 'x / 0' with x
unbound the error is E_DIVISION_BY_ZERO. check reports unbound variables
and literal zero divisors without evaluating.
`,
	"config": `Configuration

mathexpr reads the first of:
  ./.mathexpr.yaml
  ~/.mathexpr/config.yaml

  vars:
    a: 5
    b: 3
  maxDepth: 512   # 0 = default limit of 100000
  pretty: true    # human-readable diagnostics

--max-depth N overrides maxDepth; --max-depth 0 removes the limit.
--vars file.yaml adds a bare mapping of bindings on top of the config,
and --set name=value overrides both. .inf, -.inf and .nan are accepted.
`,
	"trace": `Tracing

  mathexpr eval expr.txt --trace run.jsonl
  mathexpr trace run.jsonl [--json|--text]

Each line is one JSON event: run_start, lookup, binary, error, run_end.
Every event carries ts (RFC 3339), runId and an optional source span.
The summary counts events, lookups per variable, operations per operator
and errors, and reports the run duration.
`,
	"examples": `Examples

  echo '(a + b) * c' | mathexpr eval - --set a=5 --set b=3 --set c=2
  16

  echo '10 - (3 - 2)' | mathexpr eval -
  9

  echo 'x / 0' | mathexpr eval - --pretty
  error[E_DIVISION_BY_ZERO]: division by zero

  mathexpr fmt --write expr.txt
`,
}

// TopicList is the display order of Topics.
var TopicList = []string{"syntax", "errors", "config", "trace", "examples"}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}

	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic '%s'", query)
	default:
		sort.Strings(matches)
		return "", "", fmt.Errorf("ambiguous help topic '%s': %s", query, strings.Join(matches, ", "))
	}
}
