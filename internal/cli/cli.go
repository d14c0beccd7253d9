// Package cli implements the mathexpr command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kr/pretty"

	"github.com/tanersaydam/mathexpr/pkg/ast"
	"github.com/tanersaydam/mathexpr/pkg/config"
	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
	"github.com/tanersaydam/mathexpr/pkg/evaluator"
	"github.com/tanersaydam/mathexpr/pkg/formatter"
	"github.com/tanersaydam/mathexpr/pkg/help"
	"github.com/tanersaydam/mathexpr/pkg/parser"
	"github.com/tanersaydam/mathexpr/pkg/runtime"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitDiagnostics = 2
	ExitRuntime     = 4
)

// App holds the process environment of one CLI invocation.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Terminal selects human-readable output when neither --pretty nor
	// --json is given.
	Terminal bool
	// Dir is where .mathexpr.yaml is looked up.
	Dir string
}

const usage = `usage: mathexpr <command> [options]
commands: eval, check, fmt, ast, trace, demo, help`

// Run dispatches args (without the program name) and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(a.Stderr, usage)
		return ExitUsage
	}

	cmd := args[0]
	switch cmd {
	case "eval":
		return a.cmdEval(ctx, args[1:])
	case "check":
		return a.cmdCheck(args[1:])
	case "fmt":
		return a.cmdFmt(args[1:])
	case "ast":
		return a.cmdAST(args[1:])
	case "trace":
		return a.cmdTrace(args[1:])
	case "demo":
		return a.cmdDemo(args[1:])
	case "help", "--help", "-h":
		return a.cmdHelp(args[1:])
	default:
		fmt.Fprintf(a.Stderr, "Unknown command: %s\n%s\n", cmd, usage)
		return ExitUsage
	}
}

// evalFlags are the options shared by eval and check.
type evalFlags struct {
	file     string
	pretty   *bool
	sets     []string
	varsFile string
	trace    string
	maxDepth int
}

func (a *App) parseEvalFlags(args []string, cmd string) (*evalFlags, error) {
	f := &evalFlags{maxDepth: -1}
	needValue := func(i int) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", args[i])
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "--pretty":
			v := true
			f.pretty = &v
		case "--json":
			v := false
			f.pretty = &v
		case "--set", "--vars", "--trace", "--max-depth":
			val, err := needValue(i)
			if err != nil {
				return nil, err
			}
			i++
			switch arg {
			case "--set":
				f.sets = append(f.sets, val)
			case "--vars":
				f.varsFile = val
			case "--trace":
				if cmd != "eval" {
					return nil, fmt.Errorf("--trace is only supported by eval")
				}
				f.trace = val
			case "--max-depth":
				n, err := strconv.Atoi(val)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("invalid --max-depth %q", val)
				}
				f.maxDepth = n
			}
		default:
			if arg == "-" || !strings.HasPrefix(arg, "-") {
				if f.file != "" {
					return nil, fmt.Errorf("unexpected argument %q", arg)
				}
				f.file = arg
				continue
			}
			return nil, fmt.Errorf("unknown option %s", arg)
		}
	}
	if f.file == "" {
		return nil, fmt.Errorf("missing input file")
	}
	return f, nil
}

// setup loads configuration and builds the layered environment:
// config vars, then --vars, then --set.
func (a *App) setup(f *evalFlags) (*evaluator.Env, int, bool, error) {
	// A config that fails to load still honours --pretty/--json.
	flagPretty := func(fallback bool) bool {
		if f.pretty != nil {
			return *f.pretty
		}
		return fallback
	}
	cfg, err := config.Load(a.Dir)
	if err != nil {
		return nil, 0, flagPretty(a.Terminal), err
	}

	pretty := flagPretty(cfg.Pretty || a.Terminal)
	maxDepth := runtime.DefaultMaxDepth
	if cfg.MaxDepth > 0 {
		maxDepth = cfg.MaxDepth
	}
	if f.maxDepth >= 0 {
		maxDepth = f.maxDepth
	}

	env := cfg.Env(nil)
	if f.varsFile != "" {
		vars, err := config.LoadVarsFile(f.varsFile)
		if err != nil {
			return nil, 0, pretty, err
		}
		env = (&config.Config{Vars: vars}).Env(env)
	}
	if len(f.sets) > 0 {
		env = env.Child()
		for _, s := range f.sets {
			name, val, err := config.ParseAssignment(s)
			if err != nil {
				return nil, 0, pretty, err
			}
			env.SetValue(name, val)
		}
	}
	return env, maxDepth, pretty, nil
}

func (a *App) cmdEval(ctx context.Context, args []string) int {
	f, err := a.parseEvalFlags(args, "eval")
	if err != nil {
		fmt.Fprintf(a.Stderr, "error: %s\n", err)
		fmt.Fprintln(a.Stderr, "usage: mathexpr eval <file|-> [--pretty|--json] [--set name=value]... [--vars file.yaml] [--trace out.jsonl] [--max-depth N]")
		return ExitUsage
	}

	env, maxDepth, pretty, err := a.setup(f)
	if err != nil {
		return a.reportConfigError(err, pretty)
	}

	source, filename, code := a.readSource(f.file, pretty)
	if code != ExitOK {
		return code
	}

	opts := []runtime.Option{runtime.WithEnv(env), runtime.WithMaxDepth(maxDepth)}
	if f.trace != "" {
		tw, err := newTraceWriter(f.trace)
		if err != nil {
			diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot write trace file: %s", f.trace), nil, "")
			fmt.Fprintln(a.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
			return ExitUsage
		}
		defer func() {
			if err := tw.Close(); err != nil {
				fmt.Fprintf(a.Stderr, "warning: trace file incomplete: %s\n", err)
			}
		}()
		opts = append(opts, runtime.WithTrace(tw.Write))
	}

	rt := runtime.New(opts...)
	result, execErr := rt.Run(ctx, source, filename)
	if execErr != nil {
		return a.reportError(execErr, source, pretty)
	}

	if pretty {
		fmt.Fprintln(a.Stdout, strconv.FormatFloat(result.Value, 'g', -1, 64))
		return ExitOK
	}
	b, err := evaluator.NumberToJSON(result.Value)
	if err != nil {
		fmt.Fprintf(a.Stderr, "error serializing result: %s\n", err)
		return ExitRuntime
	}
	fmt.Fprintln(a.Stdout, string(b))
	return ExitOK
}

func (a *App) cmdCheck(args []string) int {
	f, err := a.parseEvalFlags(args, "check")
	if err != nil {
		fmt.Fprintf(a.Stderr, "error: %s\n", err)
		fmt.Fprintln(a.Stderr, "usage: mathexpr check <file|-> [--pretty|--json] [--set name=value]... [--vars file.yaml] [--max-depth N]")
		return ExitUsage
	}

	env, maxDepth, pretty, err := a.setup(f)
	if err != nil {
		return a.reportConfigError(err, pretty)
	}

	source, filename, code := a.readSource(f.file, pretty)
	if code != ExitOK {
		return code
	}

	rt := runtime.New(runtime.WithEnv(env), runtime.WithMaxDepth(maxDepth))
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(a.Stderr, diagnostics.FormatAllWithSource(diags, source, pretty))
		return ExitDiagnostics
	}

	if pretty {
		fmt.Fprintln(a.Stdout, "No errors found.")
	} else {
		fmt.Fprintln(a.Stdout, "[]")
	}
	return ExitOK
}

func (a *App) cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.Stderr, "usage: mathexpr fmt <file|-> [--write]")
		return ExitUsage
	}
	if write && file == "-" {
		fmt.Fprintln(a.Stderr, "error: --write needs a file, not stdin")
		return ExitUsage
	}

	source, filename, code := a.readSource(file, a.Terminal)
	if code != ExitOK {
		return code
	}

	rt := runtime.New()
	formatted, fmtErr := rt.Format(source, filename)
	if fmtErr != nil {
		return a.reportError(fmtErr, source, a.Terminal)
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(a.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(a.Stderr, "error writing file: %s\n", err)
			return ExitUsage
		}
		return ExitOK
	}
	fmt.Fprint(a.Stdout, formatted)
	return ExitOK
}

func (a *App) cmdAST(args []string) int {
	var file string
	tree := false
	for _, arg := range args {
		switch arg {
		case "--tree":
			tree = true
		default:
			if arg == "-" || !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}
	if file == "" {
		fmt.Fprintln(a.Stderr, "usage: mathexpr ast <file|-> [--tree]")
		return ExitUsage
	}

	source, filename, code := a.readSource(file, a.Terminal)
	if code != ExitOK {
		return code
	}
	expr, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(a.Stderr, diagnostics.FormatAllWithSource(diags, source, a.Terminal))
		return ExitDiagnostics
	}

	if tree {
		fmt.Fprint(a.Stdout, formatter.Tree(expr))
		return ExitOK
	}
	fmt.Fprintf(a.Stdout, "%# v\n", pretty.Formatter(expr))
	return ExitOK
}

func (a *App) cmdDemo(args []string) int {
	prettyOut := true
	for _, arg := range args {
		if arg == "--json" {
			prettyOut = false
		}
	}

	env := evaluator.NewEnv(nil)
	env.SetValue("a", 5)
	env.SetValue("b", 3)
	env.SetValue("c", 2)

	expr := ast.Mul(ast.Add(ast.Var("a"), ast.Var("b")), ast.Var("c"))
	val, err := evaluator.Evaluate(expr, env)
	if err != nil {
		return a.reportError(err, "", prettyOut)
	}

	if !prettyOut {
		b, _ := json.Marshal(map[string]any{
			"expr":  formatter.Format(expr),
			"vars":  map[string]float64{"a": 5, "b": 3, "c": 2},
			"value": val,
		})
		fmt.Fprintln(a.Stdout, string(b))
		return ExitOK
	}
	fmt.Fprintln(a.Stdout, "Expression evaluator demo: a = 5, b = 3, c = 2")
	fmt.Fprintf(a.Stdout, "%s = %s\n", formatter.Format(expr), formatter.FormatNumber(val))
	return ExitOK
}

func (a *App) cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Fprint(a.Stdout, help.QUICKREF)
		return ExitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(a.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return ExitUsage
	}
	fmt.Fprint(a.Stdout, content)
	return ExitOK
}

// reportError prints err as diagnostics and maps it to an exit code.
func (a *App) reportError(err error, source string, pretty bool) int {
	var diagErr *runtime.DiagnosticError
	if errors.As(err, &diagErr) {
		fmt.Fprintln(a.Stderr, diagnostics.FormatAllWithSource(diagErr.Diagnostics, source, pretty))
		return ExitDiagnostics
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		fmt.Fprintln(a.Stderr, diagnostics.FormatAllWithSource([]diagnostics.Diagnostic{rtErr.Diagnostic()}, source, pretty))
		return ExitRuntime
	}
	fmt.Fprintln(a.Stderr, err.Error())
	return ExitRuntime
}

func (a *App) reportConfigError(err error, pretty bool) int {
	code := diagnostics.EConfig
	if errors.Is(err, os.ErrNotExist) {
		code = diagnostics.EIO
	}
	diag := diagnostics.MakeDiag(code, err.Error(), nil, "")
	fmt.Fprintln(a.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
	return ExitUsage
}

func (a *App) readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(a.Stdin)
		if err != nil {
			fmt.Fprintf(a.Stderr, "error reading stdin: %s\n", err)
			return "", "", ExitUsage
		}
		return string(data), "<stdin>", ExitOK
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(a.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return "", "", ExitUsage
	}
	return string(source), file, ExitOK
}
