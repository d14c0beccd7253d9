package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/tanersaydam/mathexpr/pkg/diagnostics"
	"github.com/tanersaydam/mathexpr/pkg/evaluator"
)

// traceWriter appends trace events to a file as NDJSON. The first write
// error is kept and returned by Close.
type traceWriter struct {
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
	err error
}

func newTraceWriter(path string) (*traceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	return &traceWriter{f: f, w: w, enc: json.NewEncoder(w)}, nil
}

func (t *traceWriter) Write(ev evaluator.TraceEvent) {
	if t.err != nil {
		return
	}
	t.err = t.enc.Encode(ev)
}

func (t *traceWriter) Close() error {
	if err := t.w.Flush(); err != nil && t.err == nil {
		t.err = err
	}
	if err := t.f.Close(); err != nil && t.err == nil {
		t.err = err
	}
	return t.err
}

// TraceSummary aggregates one NDJSON trace file.
type TraceSummary struct {
	RunID         string         `json:"runId"`
	TotalEvents   int            `json:"totalEvents"`
	Lookups       int            `json:"lookups"`
	LookupsByName map[string]int `json:"lookupsByName"`
	Operations    int            `json:"operations"`
	OpsByKind     map[string]int `json:"opsByKind"`
	Errors        int            `json:"errors"`
	ErrorsByCode  map[string]int `json:"errorsByCode"`
	OK            *bool          `json:"ok,omitempty"`
	Value         any            `json:"value,omitempty"`
	StartTime     string         `json:"startTime,omitempty"`
	EndTime       string         `json:"endTime,omitempty"`
	DurationMs    float64        `json:"durationMs"`
	Skipped       int            `json:"skippedLines,omitempty"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

func (a *App) cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.Stderr, "usage: mathexpr trace <file.jsonl> [--json|--text]")
		return ExitUsage
	}

	f, err := os.Open(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(a.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return ExitUsage
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("error reading %s: %s", file, err), nil, "")
		fmt.Fprintln(a.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return ExitUsage
	}

	if textOutput {
		printTraceSummaryText(a.Stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Fprintln(a.Stdout, string(b))
	}
	return ExitOK
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		LookupsByName: make(map[string]int),
		OpsByKind:     make(map[string]int),
		ErrorsByCode:  make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			summary.Skipped++
			continue
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch evaluator.TraceEventType(event.Event) {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.TS
			if ok, found := event.Data["ok"].(bool); found {
				summary.OK = &ok
			}
			if v, found := event.Data["value"]; found {
				summary.Value = v
			}
		case evaluator.TraceLookup:
			summary.Lookups++
			if name, ok := event.Data["name"].(string); ok {
				summary.LookupsByName[name]++
			}
		case evaluator.TraceBinary:
			summary.Operations++
			if kind, ok := event.Data["kind"].(string); ok {
				summary.OpsByKind[kind]++
			}
		case evaluator.TraceError:
			summary.Errors++
			if code, ok := event.Data["code"].(string); ok {
				summary.ErrorsByCode[code]++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Lookups: %d\n", s.Lookups)
	for _, name := range sortedKeys(s.LookupsByName) {
		fmt.Fprintf(w, "  %s: %d\n", name, s.LookupsByName[name])
	}
	fmt.Fprintf(w, "Operations: %d\n", s.Operations)
	for _, kind := range sortedKeys(s.OpsByKind) {
		fmt.Fprintf(w, "  %s: %d\n", kind, s.OpsByKind[kind])
	}
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	for _, code := range sortedKeys(s.ErrorsByCode) {
		fmt.Fprintf(w, "  %s: %d\n", code, s.ErrorsByCode[code])
	}
	if s.OK != nil {
		if *s.OK {
			fmt.Fprintf(w, "Result: %v\n", s.Value)
		} else {
			fmt.Fprintln(w, "Result: failed")
		}
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
